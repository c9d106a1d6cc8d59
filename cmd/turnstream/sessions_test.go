package main

import (
	"reflect"
	"testing"
)

func TestBuildResumeFrontendArgs(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		responseID string
		f          resumeFlags
		want       []string
	}{
		{
			name: "minimal",
			path: "/home/u/.turnstream/sessions/rollout-a.jsonl",
			f:    resumeFlags{prompt: "go on"},
			want: []string{
				"exec",
				"-c", `experimental_resume="/home/u/.turnstream/sessions/rollout-a.jsonl"`,
				"--", "go on",
			},
		},
		{
			name:       "with response id and model",
			path:       "/h/sessions/rollout-a.jsonl",
			responseID: "resp_123",
			f:          resumeFlags{prompt: "continue", model: "o3"},
			want: []string{
				"exec",
				"-c", `experimental_resume="/h/sessions/rollout-a.jsonl"`,
				"-c", `experimental_previous_response_id="resp_123"`,
				"-m", "o3",
				"--", "continue",
			},
		},
		{
			name: "windows-style separators normalized",
			path: `C:\Users\u\.turnstream\sessions\rollout-a.jsonl`,
			f:    resumeFlags{prompt: "p"},
			want: []string{
				"exec",
				"-c", `experimental_resume="C:/Users/u/.turnstream/sessions/rollout-a.jsonl"`,
				"--", "p",
			},
		},
		{
			name: "yolo wins over full-auto",
			path: "/h/a.jsonl",
			f:    resumeFlags{prompt: "p", fullAuto: true, yolo: true},
			want: []string{
				"exec",
				"-c", `experimental_resume="/h/a.jsonl"`,
				"--dangerously-bypass-approvals-and-sandbox",
				"--", "p",
			},
		},
		{
			name: "full-auto without yolo",
			path: "/h/a.jsonl",
			f:    resumeFlags{prompt: "p", fullAuto: true},
			want: []string{
				"exec",
				"-c", `experimental_resume="/h/a.jsonl"`,
				"--full-auto",
				"--", "p",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildResumeFrontendArgs(tt.path, tt.responseID, tt.f)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("buildResumeFrontendArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeSlashes(t *testing.T) {
	if got := normalizeSlashes(`a\b\c`); got != "a/b/c" {
		t.Fatalf("normalizeSlashes = %q, want a/b/c", got)
	}
	if got := normalizeSlashes("a/b/c"); got != "a/b/c" {
		t.Fatalf("normalizeSlashes passthrough = %q", got)
	}
}
