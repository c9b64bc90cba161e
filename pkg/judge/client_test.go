package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetQuestionDecodesLooseTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_question", r.URL.Path)
		require.Equal(t, "medium", r.URL.Query().Get("difficulty"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 42,
			"title": "Max Subarray",
			"difficulty": "Medium",
			"description": "find it",
			"examples": [{"input": [-2, 1, -3], "output": 1, "explanation": "only one"}],
			"constraints": ["n >= 1"],
			"function_signature": {"python": "def max_sub_array(nums):\n    pass"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	question, err := client.GetQuestion(context.Background(), "medium")
	require.NoError(t, err)
	require.Equal(t, "42", question.ID.String())
	require.Equal(t, "Medium", question.Difficulty)
	require.Len(t, question.Examples, 1)
	require.Equal(t, "[-2,1,-3]", question.Examples[0].Input.String())
	require.Equal(t, "1", question.Examples[0].Output.String())
	require.Contains(t, question.FunctionSignature, "python")
}

func TestRunTestCaseSendsDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "python", req.Language)
		require.Equal(t, "[1,2]", req.TestCase.Input)
		_, _ = w.Write([]byte(`{"passed": true, "actual_output": 3, "expected_output": "3", "explanation": "ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.RunTestCase(context.Background(), RunRequest{
		Language: "python",
		Code:     "print(3)",
		TestCase: TestCase{Input: "[1,2]", Output: "3"},
	})
	require.NoError(t, err)
	require.True(t, result.Passed)
	require.Equal(t, "3", result.ActualOutput.String())
}

func TestSubmitSolutionReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing required fields"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.SubmitSolution(context.Background(), SubmitRequest{Language: "java"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestSubmitSolutionDecodesVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "desc", req.QuestionDescription)
		require.Len(t, req.Examples, 2)
		_, _ = w.Write([]byte(`{"success": false, "passed_tests": 1, "total_tests": 2, "feedback": "edge case"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SubmitSolution(context.Background(), SubmitRequest{
		QuestionDescription: "desc",
		Examples:            []TestCase{{Input: "1", Output: "1"}, {Input: "2", Output: "2"}},
		Language:            "cpp",
		Code:                "int main() {}",
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 1, result.PassedTests)
	require.Equal(t, "edge case", result.Feedback)
}

func TestFlexStringHandlesNull(t *testing.T) {
	var payload struct {
		Value FlexString `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"value": null}`), &payload))
	require.Equal(t, "", payload.Value.String())

	require.NoError(t, json.Unmarshal([]byte(`{"value": true}`), &payload))
	require.Equal(t, "true", payload.Value.String())
}
