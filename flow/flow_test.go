package flow_test

import (
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/PrincetonUniversity/prga-sub001/flow"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

type recorder struct {
	ran []string
}

func (r *recorder) pass(name string, deps, before, after, excludes []string) *flow.Func {
	return &flow.Func{
		Name:     name,
		Deps:     deps,
		Before:   before,
		After:    after,
		Excludes: excludes,
		Fn: func(*prga.Context) error {
			r.ran = append(r.ran, name)
			return nil
		},
	}
}

func TestFlow_order(t *testing.T) {
	var r recorder
	f, err := flow.New(
		r.pass("P1", nil, nil, nil, nil),
		r.pass("P2", []string{"P1"}, nil, nil, nil),
		r.pass("P3", nil, nil, []string{"P2"}, nil),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Run(prga.NewContext()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"P3", "P1", "P2"}, r.ran); diff != "" {
		t.Errorf("execution order (-want +got):\n%s", diff)
	}
	err = f.Add(r.pass("P4", nil, nil, nil, []string{"P2"}))
	if !errors.Is(err, prga.ErrPassConflict) || !errors.Is(err, prga.ErrFlow) {
		t.Fatalf("got %v, want a pass conflict", err)
	}
}

func TestFlow_errors(t *testing.T) {
	var r recorder
	td := []struct {
		name   string
		passes []flow.Pass
		kind   error
	}{
		{"missing dependency", []flow.Pass{r.pass("a", []string{"b"}, nil, nil, nil)}, prga.ErrMissingDependency},
		{"cycle", []flow.Pass{
			r.pass("a", []string{"b"}, nil, nil, nil),
			r.pass("b", nil, []string{"a"}, nil, nil),
		}, prga.ErrPassCycle},
		{"cycle through after", []flow.Pass{
			r.pass("a", nil, nil, []string{"b"}, nil),
			r.pass("b", nil, nil, []string{"a"}, nil),
		}, prga.ErrPassCycle},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			f, err := flow.New(d.passes...)
			if err != nil {
				t.Fatal(err)
			}
			err = f.Run(prga.NewContext())
			if !errors.Is(err, d.kind) {
				t.Fatalf("got %v, want %v", err, d.kind)
			}
		})
	}
	if _, err := flow.New(r.pass("a", nil, nil, nil, nil), r.pass("a", nil, nil, nil, nil)); !errors.Is(err, prga.ErrDuplicateKey) {
		t.Fatalf("duplicate pass: got %v", err)
	}
	if _, err := flow.New(r.pass("a", nil, nil, nil, []string{"b"}), r.pass("b", nil, nil, nil, nil)); !errors.Is(err, prga.ErrPassConflict) {
		t.Fatalf("reverse conflict: got %v", err)
	}
	if len(r.ran) != 0 {
		t.Fatalf("passes ran: %v", r.ran)
	}
}

func TestFlow_rerun(t *testing.T) {
	var r recorder
	f, err := flow.New(r.pass("a", nil, nil, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx := prga.NewContext()
	if err = f.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.Executed("a") {
		t.Fatal("a not marked executed")
	}
	// b depends on a, which already ran
	if err = f.Add(r.pass("b", []string{"a"}, []string{"a"}, nil, nil)); err != nil {
		t.Fatal(err)
	}
	if err = f.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, r.ran); diff != "" {
		t.Errorf("execution order (-want +got):\n%s", diff)
	}
}

func TestFlow_failure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string
	f, err := flow.New(
		&flow.Func{Name: "a", Fn: func(*prga.Context) error { ran = append(ran, "a"); return nil }},
		&flow.Func{Name: "b", Deps: []string{"a"}, Fn: func(*prga.Context) error { return boom }},
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := prga.NewContext()
	if err = f.Run(ctx); errors.Cause(err) != boom {
		t.Fatalf("got %v, want boom", err)
	}
	if !f.Executed("a") || f.Executed("b") {
		t.Fatal("wrong executed set")
	}
	order, err := f.Order()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b"}, order); diff != "" {
		t.Errorf("pending (-want +got):\n%s", diff)
	}
}
