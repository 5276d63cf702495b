package jni

import (
	"testing"

	"github.com/embervm/embervm/internal/runtime"
)

func TestCIFHasFloatDetection(t *testing.T) {
	cases := []struct {
		name string
		cif  *CIF
		want bool
	}{
		{"all int params", BuildCIF([]runtime.DataType{runtime.TInt, runtime.TLong}, runtime.TInt, false), false},
		{"float param", BuildCIF([]runtime.DataType{runtime.TFloat}, runtime.TInt, false), true},
		{"double return", BuildCIF(nil, runtime.TDouble, false), true},
		{"void return", BuildCIF([]runtime.DataType{runtime.TReference}, 0, true), false},
	}
	for _, tc := range cases {
		if got := tc.cif.hasFloat(); got != tc.want {
			t.Errorf("%s: hasFloat() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCIFCallRejectsFloatArguments(t *testing.T) {
	cif := BuildCIF([]runtime.DataType{runtime.TFloat}, runtime.TInt, false)
	_, err := cif.Call(0, 0, nil, []runtime.Value{runtime.FloatValue(1.5)})
	if err == nil {
		t.Fatal("expected an error for a float-typed native argument")
	}
}

func TestCIFCallRejectsArityMismatch(t *testing.T) {
	cif := BuildCIF([]runtime.DataType{runtime.TInt, runtime.TInt}, runtime.TInt, false)
	_, err := cif.Call(0, 0, nil, []runtime.Value{runtime.IntValue(1)})
	if err == nil {
		t.Fatal("expected an error for a mismatched argument count")
	}
}

func TestWordOfRoundTripsIntegralValues(t *testing.T) {
	w, err := wordOf(runtime.TInt, runtime.IntValue(42))
	if err != nil {
		t.Fatal(err)
	}
	if int32(w) != 42 {
		t.Fatalf("wordOf(TInt, 42) = %d", w)
	}
}

func TestWordOfRejectsFloat(t *testing.T) {
	if _, err := wordOf(runtime.TFloat, runtime.FloatValue(1.0)); err == nil {
		t.Fatal("expected an error for a float datatype")
	}
}
