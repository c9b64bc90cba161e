package dto

// UploadProfileImageRequest stores a base64 encoded avatar.
type UploadProfileImageRequest struct {
	UserID      string `json:"userId" validate:"required,max=128"`
	FileName    string `json:"fileName" validate:"omitempty,max=255"`
	ContentType string `json:"contentType" validate:"omitempty,max=100"`
	ImageData   string `json:"imageData" validate:"required"`
}

// DeleteProfileImageRequest names the owner of the image to delete.
type DeleteProfileImageRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

// UploadProfileImageResponse mirrors the legacy upload contract.
type UploadProfileImageResponse struct {
	Success bool   `json:"success"`
	ImageID string `json:"imageId"`
}

// ProfileImageResponse mirrors the legacy fetch contract.
type ProfileImageResponse struct {
	ImageData   string `json:"imageData"`
	ContentType string `json:"contentType"`
	FileName    string `json:"fileName"`
}

// DeleteProfileImageResponse mirrors the legacy delete contract.
type DeleteProfileImageResponse struct {
	Success bool `json:"success"`
}
