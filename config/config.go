// Package config provides JSON-serializable configuration structs and a
// Build() validation step that turns them into the runtime parameter
// bundles fairqueue.New and decoder.New expect, mirroring the teacher's
// infra/conf/reflex.go pattern (plain JSON structs with a Build() method
// that validates and materializes a runtime config) — with protobuf
// dropped, since this module has no wire-config transport of its own to
// justify it (see DESIGN.md).
package config

import (
	"encoding/hex"

	"github.com/reflexdp/dataplane/errors"
	"github.com/reflexdp/dataplane/spproto"
)

// FairQueueConfig matches a queue's settings block.
type FairQueueConfig struct {
	UseCancel    bool    `json:"useCancel"`
	PacketWeight uint64  `json:"packetWeight"`
	MaxTime      *uint64 `json:"maxTime,omitempty"` // nil means fairqueue.MaxTime
}

// FairQueueParams is the validated, runtime-ready form of FairQueueConfig.
type FairQueueParams struct {
	UseCancel    bool
	PacketWeight uint64
	MaxTime      uint64 // 0 means "use the package default"
}

// Build validates c and produces FairQueueParams. packet_weight must be
// positive (spec §9's open question: this module rejects 0 outright).
func (c *FairQueueConfig) Build() (*FairQueueParams, error) {
	if c.PacketWeight == 0 {
		return nil, errors.New(`fairqueue config: "packetWeight" must be positive`).AtError()
	}
	p := &FairQueueParams{UseCancel: c.UseCancel, PacketWeight: c.PacketWeight}
	if c.MaxTime != nil {
		p.MaxTime = *c.MaxTime
	}
	return p, nil
}

// OTPSeedConfig matches one entry of a decoder's OTP seed table settings.
type OTPSeedConfig struct {
	SeedID uint16 `json:"seedId"`
	KeyHex string `json:"keyHex"`
	IVHex  string `json:"ivHex"`
}

// SecureDecoderConfig matches a decoder's settings block. Encryption, hash
// and OTP are each switched on by their own flag; an enabled hash also
// needs hashKeyHex, while the encryption key is not carried here at all.
// The block/hash sizes default to AES-CBC/HMAC-SHA256's native sizes,
// matching the module's default cryptoprim implementations.
type SecureDecoderConfig struct {
	EncryptionEnabled bool            `json:"encryptionEnabled"`
	BlockSize         int             `json:"blockSize,omitempty"` // default 16
	HashEnabled       bool            `json:"hashEnabled"`
	HashSize          int             `json:"hashSize,omitempty"` // default 32
	HashKeyHex        string          `json:"hashKeyHex,omitempty"`
	OTPEnabled        bool            `json:"otpEnabled"`
	NumOTPSeeds       int             `json:"numOtpSeeds,omitempty"`
	OTPSeeds          []OTPSeedConfig `json:"otpSeeds,omitempty"`
	WorkerPoolSize    int             `json:"workerPoolSize,omitempty"` // default 4
}

// DecodedOTPSeed is a validated OTPSeedConfig, keys hex-decoded.
type DecodedOTPSeed struct {
	SeedID uint16
	Key    []byte
	IV     []byte
}

// SecureDecoderParams is the validated, runtime-ready form of
// SecureDecoderConfig.
type SecureDecoderParams struct {
	Params         spproto.Params
	HashKey        []byte
	NumOTPSeeds    int
	OTPSeeds       []DecodedOTPSeed
	WorkerPoolSize int
}

const (
	defaultBlockSize      = 16
	defaultHashSize       = 32
	defaultWorkerPoolSize = 4
)

// Build validates c and produces SecureDecoderParams, applying the same
// defaults decoder.New's own Option factories use (AES-CBC block size,
// HMAC-SHA256 output size) so a config built here and a decoder built
// with decoder.New's zero-value options agree on framing math.
func (c *SecureDecoderConfig) Build() (*SecureDecoderParams, error) {
	params := spproto.Params{
		HaveEncryption: c.EncryptionEnabled,
		HaveHash:       c.HashEnabled,
		HaveOTP:        c.OTPEnabled,
	}

	if c.EncryptionEnabled {
		params.BlockSize = c.BlockSize
		if params.BlockSize == 0 {
			params.BlockSize = defaultBlockSize
		}
	}

	out := &SecureDecoderParams{}

	if c.HashEnabled {
		params.HashSize = c.HashSize
		if params.HashSize == 0 {
			params.HashSize = defaultHashSize
		}
		if c.HashKeyHex == "" {
			return nil, errors.New(`decoder config: "hashEnabled" requires "hashKeyHex"`).AtError()
		}
		key, err := hex.DecodeString(c.HashKeyHex)
		if err != nil {
			return nil, errors.New(`decoder config: invalid "hashKeyHex"`).Base(err).AtError()
		}
		out.HashKey = key
	}

	if c.OTPEnabled {
		numSeeds := c.NumOTPSeeds
		if numSeeds == 0 {
			numSeeds = 2
		}
		if numSeeds < 2 {
			return nil, errors.New(`decoder config: "numOtpSeeds" must be >= 2`).AtError()
		}
		out.NumOTPSeeds = numSeeds

		for _, s := range c.OTPSeeds {
			key, err := hex.DecodeString(s.KeyHex)
			if err != nil {
				return nil, errors.New(`decoder config: invalid otp seed "keyHex"`).Base(err).AtError()
			}
			iv, err := hex.DecodeString(s.IVHex)
			if err != nil {
				return nil, errors.New(`decoder config: invalid otp seed "ivHex"`).Base(err).AtError()
			}
			out.OTPSeeds = append(out.OTPSeeds, DecodedOTPSeed{SeedID: s.SeedID, Key: key, IV: iv})
		}
	}

	out.Params = params

	out.WorkerPoolSize = c.WorkerPoolSize
	if out.WorkerPoolSize == 0 {
		out.WorkerPoolSize = defaultWorkerPoolSize
	}

	return out, nil
}
