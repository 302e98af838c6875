package verkle

import (
	ipa "github.com/crate-crypto/go-ipa"
	"github.com/crate-crypto/go-ipa/banderwagon"
	"github.com/crate-crypto/go-ipa/bandersnatch/fr"
	"github.com/crate-crypto/go-ipa/common"
)

// multiproof is the Fiat-Shamir IPA multiproof described at
// https://dankradfeist.de/ethereum/2021/06/18/pcs-multiproofs.html: a
// single opening argument that several polynomials, each given by its
// values on the shared domain {0, ..., Width-1}, take claimed values at
// claimed (possibly repeated) domain points. It is built directly on top
// of go-ipa's single-polynomial IPA argument (CreateIPAProof/CheckIPAProof)
// and transcript (common.Transcript) rather than on go-ipa's own
// multiproof implementation, so that the r/D/t/E/g/h construction itself
// -- the part of this scheme specific to Verkle proofs -- lives in this
// package.
type multiproof struct {
	D        banderwagon.Element
	ipaProof ipa.IPAProof
}

// createMultiproof builds a multiproof that each fs[i], evaluated at
// domain point zs[i], equals ys[i]. Cs[i] is the commitment to fs[i] (the
// commitment is absorbed into the transcript for Fiat-Shamir binding; its
// polynomial form is fs[i] itself).
func createMultiproof(cfg *Config, tr *common.Transcript, Cs []banderwagon.Element, fs [][]fr.Element, zs []uint8, ys []fr.Element) multiproof {
	for i := range Cs {
		tr.AppendPoint(&Cs[i], "C")
	}
	for _, z := range zs {
		var zf fr.Element
		zf.SetUint64(uint64(z))
		tr.AppendScalar(&zf, "z")
	}
	for i := range ys {
		tr.AppendScalar(&ys[i], "y")
	}
	r := tr.ChallengeScalar("r")

	g := make([]fr.Element, Width)
	powerOfR := one()
	for i, f := range fs {
		q := computeInnerQuotientInEvaluationForm(f, int(zs[i]))
		for j := range g {
			var term fr.Element
			term.Mul(&powerOfR, &q[j])
			g[j].Add(&g[j], &term)
		}
		powerOfR.Mul(&powerOfR, &r)
	}

	D := commitSparse(cfg, g)
	tr.AppendPoint(&D, "D")
	t := tr.ChallengeScalar("t")

	h := make([]fr.Element, Width)
	powerOfR = one()
	for i, f := range fs {
		var denom fr.Element
		denom.Sub(&t, &domain[zs[i]])
		denom.Inverse(&denom)
		for j := range h {
			var term fr.Element
			term.Mul(&powerOfR, &f[j])
			term.Mul(&term, &denom)
			h[j].Add(&h[j], &term)
		}
		powerOfR.Mul(&powerOfR, &r)
	}

	hMinusG := make([]fr.Element, Width)
	for i := range hMinusG {
		hMinusG[i].Sub(&h[i], &g[i])
	}

	E := commitSparse(cfg, h)
	var commitment banderwagon.Element
	commitment.Sub(&E, &D)

	// y_final (the claimed evaluation (h-g)(t)) is not carried in the
	// proof: checkMultiproof recomputes it from ys, zs, r and t.
	proof, _ := ipa.CreateIPAProof(tr, cfg.conf, commitment, hMinusG, t)

	return multiproof{D: D, ipaProof: proof}
}

// checkMultiproof verifies a multiproof claiming that the polynomials
// committed to by Cs, each evaluated at zs[i], equal ys[i]. It mirrors
// createMultiproof exactly: every value the prover derived from fs here
// is instead reconstructed from the claimed ys and verified commitments.
func checkMultiproof(cfg *Config, tr *common.Transcript, Cs []banderwagon.Element, zs []uint8, ys []fr.Element, proof multiproof) bool {
	for i := range Cs {
		tr.AppendPoint(&Cs[i], "C")
	}
	for _, z := range zs {
		var zf fr.Element
		zf.SetUint64(uint64(z))
		tr.AppendScalar(&zf, "z")
	}
	for i := range ys {
		tr.AppendScalar(&ys[i], "y")
	}
	r := tr.ChallengeScalar("r")

	tr.AppendPoint(&proof.D, "D")
	t := tr.ChallengeScalar("t")

	coeffs := make([]fr.Element, len(zs))
	var g2OfT fr.Element
	powerOfR := one()
	for i, z := range zs {
		var denom fr.Element
		denom.Sub(&t, &domain[z])
		denom.Inverse(&denom)

		var e fr.Element
		e.Mul(&powerOfR, &denom)
		coeffs[i] = e

		var term fr.Element
		term.Mul(&e, &ys[i])
		g2OfT.Add(&g2OfT, &term)

		powerOfR.Mul(&powerOfR, &r)
	}

	E := msm(Cs, coeffs)

	var commitment banderwagon.Element
	commitment.Sub(&E, &proof.D)

	return ipa.CheckIPAProof(tr, cfg.conf, commitment, proof.ipaProof, t, g2OfT)
}

// msm computes sum_i coeffs[i] * points[i]. go-ipa's IPAConfig does not
// expose a bare multi-scalar-multiplication helper outside of Commit, so
// this is implemented directly; Cs here is at most a few hundred elements
// per proof, far short of where a Pippenger-style MSM would pay for its
// own complexity.
func msm(points []banderwagon.Element, coeffs []fr.Element) banderwagon.Element {
	var acc banderwagon.Element
	acc.SetIdentity()
	for i := range points {
		var term banderwagon.Element
		p := points[i]
		term.ScalarMul(&p, &coeffs[i])
		acc.Add(&acc, &term)
	}
	return acc
}
