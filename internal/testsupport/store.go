package testsupport

import (
	"context"
	"testing"

	"sitelog/internal/config"
	"sitelog/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewProject creates a project for tests using the provided store.
func NewProject(t testing.TB, st *store.Store, name string) *store.Project {
	t.Helper()

	project, err := st.CreateProject(context.Background(), name, "", "")
	if err != nil {
		t.Fatalf("store.CreateProject: %v", err)
	}
	return project
}

// NewSession starts a walkthrough capture session for tests.
func NewSession(t testing.TB, st *store.Store, projectID string, mode store.CaptureMode) *store.CaptureSession {
	t.Helper()

	session, err := st.CreateSession(context.Background(), &store.CaptureSession{
		ProjectID:   projectID,
		Mode:        mode,
		SessionType: store.SessionWalkthrough,
	})
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}
