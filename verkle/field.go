package verkle

import (
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
)

// domain holds the evaluation domain {0, 1, ..., Width-1} as field
// elements. Unlike a KZG-style scheme, this multiproof's domain is the
// small integers themselves rather than roots of unity: Width is small
// enough (256) that a dense, directly-indexed domain is simpler and just as
// fast as an FFT-friendly one.
var domain [Width]fr.Element

// invDiff[a][b] = (domain[a] - domain[b])^-1 for a != b. It is precomputed
// once at package init since it depends only on the domain, never on a
// particular trie or Config. invDiff[a][a] is left at zero and must never
// be read.
var invDiff [Width][Width]fr.Element

func init() {
	for i := 0; i < Width; i++ {
		domain[i].SetUint64(uint64(i))
	}
	for a := 0; a < Width; a++ {
		for b := a + 1; b < Width; b++ {
			var d fr.Element
			d.Sub(&domain[a], &domain[b])
			d.Inverse(&d)
			invDiff[a][b] = d
			invDiff[b][a].Neg(&d)
		}
	}
}

// barycentricWeight[i] = 1 / prod_{j != i} (domain[i] - domain[j]), the
// standard barycentric weights for the domain {0, ..., Width-1}. Computed
// once at package init from invDiff.
var barycentricWeight [Width]fr.Element

func init() {
	for i := 0; i < Width; i++ {
		w := one()
		for j := 0; j < Width; j++ {
			if j == i {
				continue
			}
			w.Mul(&w, &invDiff[i][j])
		}
		barycentricWeight[i] = w
	}
}

func one() fr.Element {
	var e fr.Element
	e.SetUint64(1)
	return e
}

// domainIndexOf reports whether z equals domain[i] for some i, returning
// that i. Proof construction and verification both evaluate at a
// Fiat-Shamir challenge, which lands on a domain point with only
// negligible probability, but the barycentric formula divides by zero in
// that case so it must be special-cased.
func domainIndexOf(z fr.Element) (int, bool) {
	for i := 0; i < Width; i++ {
		if domain[i].Equal(&z) {
			return i, true
		}
	}
	return 0, false
}

// evaluateInEvaluationForm evaluates, at an arbitrary field point z, the
// unique degree-(Width-1) polynomial whose values on domain are f, using
// the barycentric formula
//
//	f(z) = A(z) * sum_i f[i] * w_i / (z - domain[i])
//
// where A(z) = prod_i (z - domain[i]) and w_i are the precomputed
// barycentricWeight values.
func evaluateInEvaluationForm(f []fr.Element, z fr.Element) fr.Element {
	if i, ok := domainIndexOf(z); ok {
		return f[i]
	}

	var a fr.Element
	a.SetUint64(1)
	for i := 0; i < Width; i++ {
		var d fr.Element
		d.Sub(&z, &domain[i])
		a.Mul(&a, &d)
	}

	var sum fr.Element
	for i := 0; i < Width; i++ {
		var d fr.Element
		d.Sub(&z, &domain[i])
		d.Inverse(&d)

		var term fr.Element
		term.Mul(&f[i], &barycentricWeight[i])
		term.Mul(&term, &d)
		sum.Add(&sum, &term)
	}

	var out fr.Element
	out.Mul(&a, &sum)
	return out
}

// computeInnerQuotientInEvaluationForm computes, in evaluation form over
// domain, the quotient q(X) = (f(X) - f(index)) / (X - domain[index]) for a
// polynomial f given by its values on domain. Off the evaluation point this
// is the direct difference quotient:
//
//	q(j) = (f(j) - f(index)) / (domain[j] - domain[index]),  j != index
//
// At the evaluation point itself, q(index) is the derivative f'(domain[index]),
// which the direct quotient can't express (0/0). It is obtained from the
// barycentric-weight derivative identity (Berrut & Trefethen, "Barycentric
// Lagrange Interpolation", eq. 9.4-9.5):
//
//	q(index) = -(1/w_index) * sum_{j != index} w_j * q(j)
//
// where w_i = barycentricWeight[i]. Plugging in the naive
// sum_{j!=index}(f(j)-f(index))*invDiff[index][j] in place of this weighted
// sum (i.e. dropping the w_j/w_index ratio) silently computes a different,
// wrong polynomial -- the two only coincide when every barycentric weight
// happens to be equal, which is not the case on this domain.
func computeInnerQuotientInEvaluationForm(f []fr.Element, index int) []fr.Element {
	q := make([]fr.Element, Width)
	var weightedSum fr.Element
	for j := 0; j < Width; j++ {
		if j == index {
			continue
		}
		var diff fr.Element
		diff.Sub(&f[j], &f[index])

		var qj fr.Element
		qj.Mul(&diff, &invDiff[j][index])
		q[j] = qj

		var term fr.Element
		term.Mul(&barycentricWeight[j], &qj)
		weightedSum.Add(&weightedSum, &term)
	}

	var invWIndex fr.Element
	invWIndex.Inverse(&barycentricWeight[index])
	var diag fr.Element
	diag.Mul(&invWIndex, &weightedSum)
	diag.Neg(&diag)
	q[index] = diag
	return q
}
