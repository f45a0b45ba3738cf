package netref_test

import (
	"testing"

	"github.com/PrincetonUniversity/prga-sub001/internal/netref"
	"github.com/google/go-cmp/cmp"
)

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func TestParse(t *testing.T) {
	td := []struct {
		in   string
		want *netref.Ref
	}{
		{"in", &netref.Ref{Bus: &netref.BusRef{Name: "in"}}},
		{"cfg_d[2]", &netref.Ref{Bus: &netref.BusRef{Name: "cfg_d", Slice: &netref.Slice{Hi: 2}}}},
		{"lut.in[3:0]", &netref.Ref{Bus: &netref.BusRef{Name: "lut", Pin: "in", Slice: &netref.Slice{Hi: 3, Lo: intp(0)}}}},
		{"4'b01x0", &netref.Ref{Const: strp("4'b01x0")}},
		{"{a, b[1], 2'h3}", &netref.Ref{Concat: []*netref.Ref{
			{Bus: &netref.BusRef{Name: "a"}},
			{Bus: &netref.BusRef{Name: "b", Slice: &netref.Slice{Hi: 1}}},
			{Const: strp("2'h3")},
		}}},
		{"{ {ff.Q}, lut.out }", &netref.Ref{Concat: []*netref.Ref{
			{Concat: []*netref.Ref{{Bus: &netref.BusRef{Name: "ff", Pin: "Q"}}}},
			{Bus: &netref.BusRef{Name: "lut", Pin: "out"}},
		}}},
	}
	for _, d := range td {
		t.Run(d.in, func(t *testing.T) {
			got, err := netref.Parse(d.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(d.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_errors(t *testing.T) {
	for _, in := range []string{"", "a.", "a[", "{a,}", "a[1:]", "3", "{a b}"} {
		if _, err := netref.Parse(in); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}

func TestConstBits(t *testing.T) {
	const (
		z = netref.Zero
		o = netref.One
		x = netref.Open
	)
	td := []struct {
		in   string
		want []int8
	}{
		{"4'b01x0", []int8{z, x, o, z}},
		{"'b101", []int8{o, z, o}},
		{"8'hA5", []int8{o, z, o, z, z, o, z, o}},
		{"3'hF", []int8{o, o, o}},
		{"6'd5", []int8{o, z, o, z, z, z}},
		{"'d0", []int8{z}},
		{"2'hz", []int8{x, x}},
		{"8'b1010_0101", []int8{o, z, o, z, z, o, z, o}},
	}
	for _, d := range td {
		t.Run(d.in, func(t *testing.T) {
			got, err := netref.ConstBits(d.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(d.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
	for _, in := range []string{"4'b012", "0'b1", "'hG", "4"} {
		if _, err := netref.ConstBits(in); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}
