// Copyright 2025 Certen Protocol

package sandbox

import "testing"

func TestParsePythonOutputAccept(t *testing.T) {
	ok, err := parsePythonOutput("VERIFY_RESULT:true\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected accept verdict")
	}
}

func TestParsePythonOutputReject(t *testing.T) {
	ok, err := parsePythonOutput("VERIFY_RESULT:false\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected reject verdict")
	}
}

func TestParsePythonOutputFunctionNotFound(t *testing.T) {
	_, err := parsePythonOutput("VERIFY_ERROR:function_not_found\n")
	if _, ok := err.(*FunctionNotFoundError); !ok {
		t.Fatalf("expected FunctionNotFoundError, got %T (%v)", err, err)
	}
}

func TestParsePythonOutputInvalidReturnType(t *testing.T) {
	_, err := parsePythonOutput("VERIFY_ERROR:invalid_return_type:str\n")
	irt, ok := err.(*InvalidReturnTypeError)
	if !ok {
		t.Fatalf("expected InvalidReturnTypeError, got %T (%v)", err, err)
	}
	if irt.Got != "str" {
		t.Fatalf("expected Got=str, got %q", irt.Got)
	}
}

func TestParsePythonOutputNetworkAccessDenied(t *testing.T) {
	_, err := parsePythonOutput("VERIFY_ERROR:network_access_denied\n")
	if err != ErrNetworkAccessDenied {
		t.Fatalf("expected ErrNetworkAccessDenied, got %v", err)
	}
}

func TestParsePythonOutputFilesystemAccessDenied(t *testing.T) {
	_, err := parsePythonOutput("VERIFY_ERROR:filesystem_access_denied\n")
	if err != ErrFileSystemAccessDenied {
		t.Fatalf("expected ErrFileSystemAccessDenied, got %v", err)
	}
}

func TestParsePythonOutputMissingMarker(t *testing.T) {
	_, err := parsePythonOutput("some noise\nmore noise\n")
	if err == nil {
		t.Fatal("expected error for output with no marker line")
	}
}
