package service

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrResumeRequired indicates no resume file was attached.
	ErrResumeRequired = errors.New("resume file is required")
	// ErrResumeTooLarge indicates the resume exceeds the upload limit.
	ErrResumeTooLarge = errors.New("resume exceeds upload limit")
	// ErrUnsupportedResumeType indicates the resume is not a document format we accept.
	ErrUnsupportedResumeType = errors.New("resume must be a pdf, doc, docx, txt or rtf file")
)

var resumeExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".txt":  {},
	".rtf":  {},
}

// Detected types accepted for resumes. docx sniffs as zip and legacy doc as OLE storage.
var resumeMIMETypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/zip",
	"application/x-ole-storage",
	"text/plain",
	"text/rtf",
	"application/rtf",
	"application/octet-stream",
}

// UploadedFile is a file received through a multipart form.
type UploadedFile struct {
	FileName string
	Content  []byte
}

// validateResume checks size, extension and sniffed content type.
func validateResume(file *UploadedFile, maxBytes int) error {
	if file == nil || len(file.Content) == 0 {
		return ErrResumeRequired
	}
	if maxBytes > 0 && len(file.Content) > maxBytes {
		return ErrResumeTooLarge
	}

	ext := strings.ToLower(filepath.Ext(file.FileName))
	if _, ok := resumeExtensions[ext]; !ok {
		return ErrUnsupportedResumeType
	}

	detected := mimetype.Detect(file.Content)
	for _, allowed := range resumeMIMETypes {
		if detected.Is(allowed) {
			return nil
		}
	}
	return ErrUnsupportedResumeType
}
