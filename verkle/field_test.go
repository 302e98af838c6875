package verkle

import (
	"testing"

	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
)

func TestEvaluateInEvaluationFormOnDomainPoint(t *testing.T) {
	f := make([]fr.Element, Width)
	for i := range f {
		f[i].SetUint64(uint64(i * i))
	}
	got := evaluateInEvaluationForm(f, domain[17])
	if !got.Equal(&f[17]) {
		t.Fatalf("evaluating at a domain point should return f[i] directly")
	}
}

func TestEvaluateInEvaluationFormMatchesConstantPolynomial(t *testing.T) {
	f := make([]fr.Element, Width)
	var c fr.Element
	c.SetUint64(42)
	for i := range f {
		f[i] = c
	}
	var z fr.Element
	z.SetUint64(1000)
	got := evaluateInEvaluationForm(f, z)
	if !got.Equal(&c) {
		t.Fatalf("constant polynomial should evaluate to itself everywhere, got %v want %v", got, c)
	}
}

func TestComputeInnerQuotientConsistentWithDirectDivision(t *testing.T) {
	// f(X) = X^2, in evaluation form over domain.
	f := make([]fr.Element, Width)
	for i := range f {
		f[i].Square(&domain[i])
	}
	index := 5
	q := computeInnerQuotientInEvaluationForm(f, index)

	// Off-diagonal entries must equal (f[j]-f[index])/(domain[j]-domain[index]).
	for j := 0; j < Width; j++ {
		if j == index {
			continue
		}
		var num, den, want fr.Element
		num.Sub(&f[j], &f[index])
		den.Sub(&domain[j], &domain[index])
		den.Inverse(&den)
		want.Mul(&num, &den)
		if !q[j].Equal(&want) {
			t.Fatalf("quotient[%d] mismatch: got %v want %v", j, q[j], want)
		}
	}

	// The diagonal entry is the derivative f'(domain[index]); for f(X)=X^2
	// that is 2*domain[index].
	var want fr.Element
	want.Add(&domain[index], &domain[index])
	if !q[index].Equal(&want) {
		t.Fatalf("quotient[index] (diagonal) mismatch: got %v want %v", q[index], want)
	}
}

func TestInvDiffAntisymmetric(t *testing.T) {
	var sum fr.Element
	sum.Add(&invDiff[3][9], &invDiff[9][3])
	if !sum.IsZero() {
		t.Fatalf("invDiff[a][b] should equal -invDiff[b][a]")
	}
}
