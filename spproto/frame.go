// Package spproto holds the wire-format constants and MTU math for the
// framing spec.md §6 defines, grounded on the header offset arithmetic in
// BadVPN's SPProtoDecoder.c (SPPROTO_HEADER_LEN, SPPROTO_HEADER_OTPDATA_OFF,
// SPPROTO_HEADER_HASH_OFF, spproto_carrier_mtu_for_payload_mtu).
//
// This package holds no cryptographic logic and does no I/O: it is pure
// byte-layout arithmetic, shared by the decoder (which parses frames) and
// by tests (which build them).
package spproto

// OTPFieldLen is the width in bytes of the OTP sub-field: a little-endian
// uint16 seed_id followed by a little-endian uint16 otp value (spec §6).
const OTPFieldLen = 4

// Params describes which framing features are negotiated. HashSize and
// BlockSize are meaningless when the corresponding Have* flag is false.
type Params struct {
	HaveEncryption bool
	HaveHash       bool
	HaveOTP        bool

	BlockSize int // encryption block size, e.g. 16 for AES
	HashSize  int // keyed hash output size, e.g. 32 for HMAC-SHA256
}

// HeaderOTPOffset is the byte offset of the OTP sub-field within the
// header. It always comes first when present (spec §6).
func (p Params) HeaderOTPOffset() int {
	return 0
}

// HeaderHashOffset is the byte offset of the hash sub-field within the
// header: it follows the OTP sub-field when both are present.
func (p Params) HeaderHashOffset() int {
	if p.HaveOTP {
		return OTPFieldLen
	}
	return 0
}

// HeaderLen is the total header length: OTP_LEN·have_otp + HASH_LEN·have_hash.
func (p Params) HeaderLen() int {
	n := 0
	if p.HaveOTP {
		n += OTPFieldLen
	}
	if p.HaveHash {
		n += p.HashSize
	}
	return n
}

// alignUp rounds n up to the next multiple of align. align must be positive.
func alignUp(n, align int) int {
	return ((n + align - 1) / align) * align
}

// CarrierMTU computes the input MTU an SPD needs from a downstream payload
// MTU, per spec §6:
//
//	base = header_len + payload_mtu
//	with encryption: block_size + align_up(base+1, block_size)
//	without:         base
func (p Params) CarrierMTU(payloadMTU int) int {
	base := p.HeaderLen() + payloadMTU
	if !p.HaveEncryption {
		return base
	}
	return p.BlockSize + alignUp(base+1, p.BlockSize)
}
