package health

import (
	"context"
	"errors"
	"testing"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type loaded bool

func (l loaded) Loaded() bool { return bool(l) }

func TestCheckHealthy(t *testing.T) {
	r := New(pinger{}, loaded(true)).Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("status = %v, want ok", r.Status)
	}
	if r.Checks["store"] != CheckOK || r.Checks["reference_data"] != CheckOK {
		t.Errorf("checks = %v", r.Checks)
	}
}

func TestCheckDegraded(t *testing.T) {
	r := New(pinger{err: errors.New("down")}, loaded(true)).Check(context.Background())
	if r.Status != Degraded || r.Checks["store"] != CheckError {
		t.Errorf("report = %+v", r)
	}

	r = New(pinger{}, loaded(false)).Check(context.Background())
	if r.Status != Degraded || r.Checks["reference_data"] != CheckError {
		t.Errorf("report = %+v", r)
	}
}

func TestCheckNilStore(t *testing.T) {
	r := New(nil, loaded(true)).Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("status = %v", r.Status)
	}
	if _, ok := r.Checks["store"]; ok {
		t.Error("store check present without a store")
	}
}
