package verkle

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ipa "github.com/crate-crypto/go-ipa"
	"github.com/crate-crypto/go-ipa/banderwagon"
)

// Marshal encodes a Proof into the wire format: one depth-and-status byte
// per distinct stem, the sorted other_stems list, the sorted non-root
// commitments, the D commitment, and finally the IPA sub-proof (delegated
// to go-ipa's own encoding). The root commitment is never included --
// it is agreed out of band between prover and verifier.
func (p *Proof) Marshal() ([]byte, error) {
	if len(p.Depths) != len(p.ExtensionPresent) {
		return nil, fmt.Errorf("verkle: %d depths but %d extension_present entries", len(p.Depths), len(p.ExtensionPresent))
	}

	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Depths)))
	for i, d := range p.Depths {
		if d > 31 {
			return nil, fmt.Errorf("verkle: depth %d out of range", d)
		}
		b := d & 0x1f
		b |= byte(p.ExtensionPresent[i]&0x3) << 5
		buf.WriteByte(b)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(p.OtherStems)))
	for _, s := range p.OtherStems {
		buf.Write(s[:])
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Commitments)))
	for _, c := range p.Commitments {
		b := c.Bytes()
		buf.Write(b[:])
	}

	db := p.D.Bytes()
	buf.Write(db[:])

	if err := p.IPA.Write(&buf); err != nil {
		return nil, fmt.Errorf("verkle: writing ipa proof: %w", err)
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a Proof previously produced by Marshal.
func Unmarshal(data []byte) (*Proof, error) {
	r := bytes.NewReader(data)

	var numStems uint32
	if err := binary.Read(r, binary.LittleEndian, &numStems); err != nil {
		return nil, reject(ReasonMalformedProof, "reading stem count: %v", err)
	}
	depths := make([]byte, numStems)
	extPresent := make([]ExtPresent, numStems)
	for i := range depths {
		b, err := r.ReadByte()
		if err != nil {
			return nil, reject(ReasonMalformedProof, "reading depth/status byte %d: %v", i, err)
		}
		depths[i] = b & 0x1f
		extPresent[i] = ExtPresent((b >> 5) & 0x3)
	}

	var numOther uint32
	if err := binary.Read(r, binary.LittleEndian, &numOther); err != nil {
		return nil, reject(ReasonMalformedProof, "reading other_stems count: %v", err)
	}
	otherStems := make([][StemSize]byte, numOther)
	for i := range otherStems {
		if _, err := readFull(r, otherStems[i][:]); err != nil {
			return nil, reject(ReasonMalformedProof, "reading other_stems[%d]: %v", i, err)
		}
	}

	var numCommitments uint32
	if err := binary.Read(r, binary.LittleEndian, &numCommitments); err != nil {
		return nil, reject(ReasonMalformedProof, "reading commitment count: %v", err)
	}
	commitments := make([]banderwagon.Element, numCommitments)
	for i := range commitments {
		var raw [32]byte
		if _, err := readFull(r, raw[:]); err != nil {
			return nil, reject(ReasonMalformedProof, "reading commitment[%d]: %v", i, err)
		}
		if err := commitments[i].Unmarshal(raw[:]); err != nil {
			return nil, reject(ReasonMalformedProof, "decoding commitment[%d]: %v", i, err)
		}
	}

	var dRaw [32]byte
	if _, err := readFull(r, dRaw[:]); err != nil {
		return nil, reject(ReasonMalformedProof, "reading D: %v", err)
	}
	var d banderwagon.Element
	if err := d.Unmarshal(dRaw[:]); err != nil {
		return nil, reject(ReasonMalformedProof, "decoding D: %v", err)
	}

	var ipaProof ipa.IPAProof
	if err := ipaProof.Read(r); err != nil {
		return nil, reject(ReasonMalformedProof, "reading ipa proof: %v", err)
	}

	return &Proof{
		Depths:           depths,
		ExtensionPresent: extPresent,
		Commitments:      commitments,
		OtherStems:       otherStems,
		D:                d,
		IPA:              ipaProof,
	}, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
