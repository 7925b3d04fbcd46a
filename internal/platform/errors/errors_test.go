package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("select: %w", New(CodeCasualtyInvalid, "wrong number of casualties"))
	if !stderrors.Is(err, New(CodeCasualtyInvalid, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(err, New(CodeRetreatInvalid, "")) {
		t.Fatal("expected different code not to match")
	}
	if got := CodeOf(err); got != CodeCasualtyInvalid {
		t.Fatalf("CodeOf = %s, want %s", got, CodeCasualtyInvalid)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %s, want %s", got, CodeUnknown)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeNotFound, "load journal", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "load journal: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeCasualtyInvalid, codes.InvalidArgument},
		{CodeBattleOver, codes.FailedPrecondition},
		{CodeRemoteTimeout, codes.DeadlineExceeded},
		{CodeJournalSignature, codes.PermissionDenied},
		{CodeNotFound, codes.NotFound},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range tests {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeRetreatInvalid, "bad retreat", map[string]string{"Territory": "Egypt"})
	st, ok := status.FromError(err.ToGRPCStatus("en-US", "Invalid retreat selection: Egypt"))
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.GetReason() != string(CodeRetreatInvalid) {
		t.Fatalf("error info = %v", info)
	}
	if localized == nil || localized.GetMessage() != "Invalid retreat selection: Egypt" {
		t.Fatalf("localized = %v", localized)
	}
}

func TestFromGRPCStatusRoundTrip(t *testing.T) {
	sent := WithMetadata(CodeRemoteTimeout, "no answer", map[string]string{"Player": "Germans"})
	wire := sent.ToGRPCStatus("de-DE", "Zeitüberschreitung beim Warten auf Germans")

	got, ok := FromGRPCStatus(wire)
	if !ok {
		t.Fatal("expected a domain error")
	}
	if got.Code != CodeRemoteTimeout || got.Metadata["Player"] != "Germans" || got.Message != "no answer" {
		t.Fatalf("rebuilt = %+v", got)
	}
	if !stderrors.Is(got, wire) {
		t.Fatal("expected the status as cause")
	}
	if msg := LocalizedMessage(wire); msg != "Zeitüberschreitung beim Warten auf Germans" {
		t.Fatalf("localized = %q", msg)
	}
}

func TestFromGRPCStatusIgnoresForeignErrors(t *testing.T) {
	foreign, err := status.New(codes.Unavailable, "down").WithDetails(&errdetails.ErrorInfo{Reason: "X", Domain: "example.com"})
	if err != nil {
		t.Fatalf("with details: %v", err)
	}
	for _, e := range []error{stderrors.New("plain"), status.Error(codes.Internal, "boom"), foreign.Err()} {
		if _, ok := FromGRPCStatus(e); ok {
			t.Fatalf("FromGRPCStatus(%v) reported a domain error", e)
		}
		if msg := LocalizedMessage(e); msg != "" {
			t.Fatalf("LocalizedMessage(%v) = %q", e, msg)
		}
	}
}
