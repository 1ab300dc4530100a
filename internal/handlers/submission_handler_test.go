package handlers

import (
	"encoding/json"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormAgeAcceptsNumberStringAndNull(t *testing.T) {
	cases := map[string]string{
		`{"contributor_age": 67}`:   "67",
		`{"contributor_age": "67"}`: "67",
		`{"contributor_age": ""}`:   "",
		`{"contributor_age": null}`: "",
		`{}`:                        "",
		`{"contributor_age": 4.5}`:  "4.5",
	}

	for body, want := range cases {
		var req createSubmissionRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		assert.Equal(t, want, req.toInput().ContributorAge, body)
	}

	var req createSubmissionRequest
	assert.Error(t, json.Unmarshal([]byte(`{"contributor_age": true}`), &req))
}

func TestMultipartInput(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{
			"contributor_name": {"Hauwa Sani"},
			"title":            {"Wedding calabash"},
			"category":         {"artifact"},
			"contributor_age":  {""},
			"media_urls":       {"https://example.org/a.jpg\nhttps://example.org/b.jpg", "https://example.org/c.jpg"},
		},
		File: map[string][]*multipart.FileHeader{
			"files": {{Filename: "one.png", Size: 10}, {Filename: "two.pdf", Size: 20}},
		},
	}

	input := multipartInput(form)
	assert.Equal(t, "Hauwa Sani", input.ContributorName)
	assert.Equal(t, "artifact", input.Category)
	assert.Empty(t, input.Description)
	assert.Equal(t, []string{"https://example.org/a.jpg", "https://example.org/b.jpg", "https://example.org/c.jpg"}, input.MediaLinks)
	require.Len(t, input.Files, 2)
	assert.Equal(t, "two.pdf", input.Files[1].Filename)
	assert.EqualValues(t, 20, input.Files[1].Size)
}
