package app

import (
	"testing"

	"github.com/alumnilink/donation-service/internal/domain"
)

func TestParseMayaAmount(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"500.00", 50000, false},
		{"500", 50000, false},
		{"0.50", 50, false},
		{"12.5", 1250, false},
		{"1.999", 199, false}, // extra precision truncated
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := parseMayaAmount(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseMayaAmount(%q): expected error, got %d", tc.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMayaAmount(%q): unexpected error %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseMayaAmount(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeMayaStatus(t *testing.T) {
	cases := []struct {
		status string
		want   domain.CallbackOutcome
	}{
		{"PAYMENT_SUCCESS", domain.OutcomeSucceeded},
		{"payment_success", domain.OutcomeSucceeded},
		{"PAYMENT_FAILED", domain.OutcomeFailed},
		{"PAYMENT_EXPIRED", domain.OutcomeFailed},
		{"PAYMENT_CANCELLED", domain.OutcomeFailed},
		{"AUTHORIZED", domain.OutcomeIndeterminate},
		{"FOR_AUTHENTICATION", domain.OutcomeIndeterminate},
		{"", domain.OutcomeIndeterminate},
	}
	for _, tc := range cases {
		if got := normalizeMayaStatus(tc.status); got != tc.want {
			t.Errorf("normalizeMayaStatus(%q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
