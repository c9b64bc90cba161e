package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

const (
	defaultJavaSignature   = "public int[] twoSum(int[] nums, int target)"
	defaultCPPSignature    = "vector<int> twoSum(vector<int>& nums, int target)"
	defaultPythonSignature = "def twoSum(self, nums: List[int], target: int) -> List[int]:"
)

var pythonCommentPattern = regexp.MustCompile(`(?m)#.*$`)

// buildDrafts wraps each function signature in a class Solution skeleton per editor language.
func buildDrafts(signatures map[string]string) map[string]string {
	return map[string]string{
		models.LanguageJava:   javaSkeleton(signatures[models.LanguageJava]),
		models.LanguageCPP:    cppSkeleton(signatures[models.LanguageCPP]),
		models.LanguagePython: pythonSkeleton(signatures[models.LanguagePython]),
	}
}

func javaSkeleton(signature string) string {
	header := braceHeader(signature, defaultJavaSignature)
	return "class Solution {\n    " + header + "\n        // Write your code here\n    }\n}"
}

func cppSkeleton(signature string) string {
	header := braceHeader(signature, defaultCPPSignature)
	return "class Solution {\npublic:\n    " + header + "\n        // Write your code here\n    }\n};"
}

func pythonSkeleton(signature string) string {
	header := defaultPythonSignature
	stripped := strings.TrimSpace(pythonCommentPattern.ReplaceAllString(signature, ""))
	for _, line := range strings.Split(stripped, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "def ") {
			header = line
			break
		}
	}
	if !strings.HasSuffix(header, ":") {
		header += ":"
	}

	return "class Solution:\n    " + header + "\n        # Write your code here\n        pass"
}

// braceHeader keeps the declaration up to its opening brace and drops any generated body.
func braceHeader(signature, fallback string) string {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		signature = fallback
	}

	if idx := strings.Index(signature, "{"); idx >= 0 {
		signature = signature[:idx]
	}
	signature = strings.Join(strings.Fields(signature), " ")

	return signature + " {"
}

// fallbackQuestion is served when the judge cannot generate a question.
func fallbackQuestion(difficulty string, now time.Time) models.Question {
	label := difficulty
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}

	return models.Question{
		ID:          fmt.Sprintf("fallback_%d", now.Unix()),
		Title:       "Arrays Problem",
		Difficulty:  label,
		Description: "Given an array of integers, find the subarray with the maximum sum.",
		Examples: []models.QuestionExample{
			{
				Input:       "[-2, 1, -3, 4, -1, 2, 1, -5, 4]",
				Output:      "6",
				Explanation: "The subarray [4, -1, 2, 1] has the maximum sum of 6.",
			},
		},
		Constraints: []string{"1 ≤ array length ≤ 100", "-1000 ≤ array[i] ≤ 1000"},
		FunctionSignature: map[string]string{
			models.LanguageJava:   "public int maxSubArray(int[] nums) {\n    // Add your solution here\n}",
			models.LanguageCPP:    "int maxSubArray(vector<int>& nums) {\n    // Add your solution here\n}",
			models.LanguagePython: "def max_sub_array(nums):\n    # Add your solution here\n    pass",
		},
	}
}
