package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecks(t *testing.T) {
	rep := NewService().Status(context.Background())
	if !rep.OK || rep.Checks != nil {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestStatusReportsFailingCheck(t *testing.T) {
	svc := NewService()
	svc.Register("database", func(ctx context.Context) error { return nil })
	svc.Register("index", func(ctx context.Context) error { return errors.New("index closed") })
	svc.Register("ignored", nil)

	rep := svc.Status(context.Background())
	if rep.OK {
		t.Fatalf("expected not ok")
	}
	if rep.Checks["database"] != "ok" || rep.Checks["index"] != "index closed" {
		t.Fatalf("unexpected checks %v", rep.Checks)
	}
	if _, ok := rep.Checks["ignored"]; ok {
		t.Fatalf("nil check should not be registered")
	}
}
