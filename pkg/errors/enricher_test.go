package errors_test

import (
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/joe/migrate-verify/pkg/errors"
)

func TestEnricher_EnrichAlreadyActionableError(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	originalActionable := pkgerrors.NewActionableError(
		"permission denied",
		pkgerrors.CategoryPermission,
		[]string{"existing suggestion"},
		"/original/path",
	)

	enriched := enricher.Enrich(originalActionable, "/new/path")

	var actionableErr pkgerrors.ActionableError
	if !errors.As(enriched, &actionableErr) {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr != originalActionable {
		t.Error("expected same ActionableError instance when enriching ActionableError")
	}
}

func TestEnricher_EnrichMediaError(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	enriched := enricher.Enrich(errors.New("read /mnt/old/x: input/output error"), "/mnt/old/x")

	var actionableErr pkgerrors.ActionableError
	if !errors.As(enriched, &actionableErr) {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr.Category() != pkgerrors.CategoryMedia {
		t.Errorf("expected category %q, got %q", pkgerrors.CategoryMedia, actionableErr.Category())
	}

	if actionableErr.AffectedPath() != "/mnt/old/x" {
		t.Errorf("expected affected path /mnt/old/x, got %q", actionableErr.AffectedPath())
	}

	if len(actionableErr.Suggestions()) == 0 {
		t.Error("expected suggestions for media error")
	}
}

func TestEnricher_ExtractPathFromErrorMessage(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	enriched := enricher.Enrich(errors.New("open /mnt/old/locked.doc: permission denied"), "")

	actionableErr, ok := enriched.(pkgerrors.ActionableError)
	if !ok {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr.AffectedPath() != "/mnt/old/locked.doc" {
		t.Errorf("expected extracted path, got %q", actionableErr.AffectedPath())
	}

	found := false
	for _, suggestion := range actionableErr.Suggestions() {
		if strings.Contains(suggestion, "/mnt/old/locked.doc") {
			found = true
		}
	}

	if !found {
		t.Error("expected a suggestion mentioning the extracted path")
	}
}

func TestTally(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	errs := []error{
		enricher.Enrich(errors.New("read a: input/output error"), "a"),
		enricher.Enrich(errors.New("read b: input/output error"), "b"),
		enricher.Enrich(errors.New("open c: permission denied"), "c"),
		errors.New("plain"),
	}

	counts := pkgerrors.Tally(errs)

	if counts[pkgerrors.CategoryMedia] != 2 {
		t.Errorf("expected 2 media errors, got %d", counts[pkgerrors.CategoryMedia])
	}

	if counts[pkgerrors.CategoryPermission] != 1 {
		t.Errorf("expected 1 permission error, got %d", counts[pkgerrors.CategoryPermission])
	}

	if counts[pkgerrors.CategoryUnknown] != 1 {
		t.Errorf("expected 1 unknown error, got %d", counts[pkgerrors.CategoryUnknown])
	}
}
