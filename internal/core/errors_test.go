package core

import (
	"net/http"
	"testing"
)

func TestStatusCodeByKind(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindInvalidRequest, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindPermission, http.StatusForbidden},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindBilling, http.StatusPaymentRequired},
		{KindEmptyUpstreamResponse, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &UpstreamError{Kind: tt.kind}
			if got := e.StatusCode(); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusCodeUpstreamWins(t *testing.T) {
	e := &UpstreamError{Kind: KindAuth, HTTPStatus: http.StatusTooManyRequests}
	if got := e.StatusCode(); got != http.StatusTooManyRequests {
		t.Errorf("StatusCode() = %d, want upstream 429", got)
	}
}

func TestParseUpstreamError(t *testing.T) {
	kinds := map[string]ErrorKind{
		"authentication_error": KindAuth,
	}

	tests := []struct {
		name        string
		status      int
		body        string
		kindForType map[string]ErrorKind
		wantKind    ErrorKind
		wantMessage string
	}{
		{
			name:        "mapped error.type",
			status:      401,
			body:        `{"error": {"type": "authentication_error", "message": "bad key"}}`,
			kindForType: kinds,
			wantKind:    KindAuth,
			wantMessage: "bad key",
		},
		{
			name:        "error.status used when type absent",
			status:      429,
			body:        `{"error": {"status": "RESOURCE_EXHAUSTED", "message": "quota"}}`,
			kindForType: map[string]ErrorKind{"RESOURCE_EXHAUSTED": KindRateLimited},
			wantKind:    KindRateLimited,
			wantMessage: "quota",
		},
		{
			name:        "bare error string body",
			status:      404,
			body:        `{"error": "model not found"}`,
			kindForType: nil,
			wantKind:    KindUnknown,
			wantMessage: "model not found",
		},
		{
			name:        "non-json body preserved verbatim",
			status:      502,
			body:        `Bad Gateway`,
			kindForType: kinds,
			wantKind:    KindUnknown,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "unmapped type classifies by status",
			status:      403,
			body:        `{"error": {"type": "novel_error", "message": "denied"}}`,
			kindForType: kinds,
			wantKind:    KindPermission,
			wantMessage: "denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseUpstreamError("test", tt.status, []byte(tt.body), tt.kindForType)
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if e.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", e.Message, tt.wantMessage)
			}
			if e.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", e.HTTPStatus, tt.status)
			}
		})
	}
}

func TestParseUpstreamErrorDetails(t *testing.T) {
	valid := `{"error": {"type": "x", "message": "y"}}`
	e := ParseUpstreamError("test", 400, []byte(valid), nil)
	if string(e.Details) != valid {
		t.Errorf("Details = %q, want raw body", e.Details)
	}

	e = ParseUpstreamError("test", 502, []byte("not json"), nil)
	if e.Details != nil {
		t.Errorf("Details = %q, want nil for invalid JSON", e.Details)
	}
}
