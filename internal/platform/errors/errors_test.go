package errors

import (
	stderrors "errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeTurnInFlight, "turn already in flight")
	target := New(CodeTurnInFlight, "different message")

	if !stderrors.Is(err, target) {
		t.Fatal("expected errors with the same code to match")
	}
	other := New(CodeRewindBeyondLatest, "rewind target beyond latest")
	if stderrors.Is(err, other) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodePersistenceFailed, "append turn event", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "append turn event" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestToGRPCStatus(t *testing.T) {
	err := WithMetadata(CodeRewindBeyondLatest, "rewind target beyond latest", map[string]string{
		"target": "12",
		"latest": "7",
	})

	st, ok := status.FromError(err.ToGRPCStatus())
	if !ok {
		t.Fatal("expected a gRPC status error")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", st.Code())
	}
	if st.Message() != "rewind target beyond latest" {
		t.Fatalf("unexpected message: %q", st.Message())
	}
	if len(st.Details()) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(st.Details()))
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeValidationFailed, codes.InvalidArgument},
		{CodeTurnInFlight, codes.FailedPrecondition},
		{CodeCampaignNotFound, codes.NotFound},
		{CodePersistenceFailed, codes.Unavailable},
		{CodeUnknown, codes.Unknown},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Errorf("GRPCCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
