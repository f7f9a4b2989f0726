package main

import (
	"strings"
	"testing"
)

func TestRenderTableKeepsHeaderCase(t *testing.T) {
	out := renderTable(
		[]string{"Pending", "Synced", "Total"},
		[][]string{{"1", "2", "3"}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	)
	if !strings.Contains(out, "Pending") {
		t.Fatalf("expected header rendered as given, got:\n%s", out)
	}
	if strings.Contains(out, "PENDING") {
		t.Fatalf("header must not be uppercased, got:\n%s", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Name"},
		[][]string{{"only-id"}},
		nil,
	)
	if !strings.Contains(out, "only-id") {
		t.Fatalf("expected row content, got:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output for no headers")
	}
}
