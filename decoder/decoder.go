// Package decoder implements the Secure-Protocol Decoder (SPD): an inbound
// datagram pipeline that strips a framing header, optionally decrypts with
// CBC-mode block encryption, verifies a keyed hash, and validates an OTP
// replay guard, offloading the cryptographic work to a worker pool while
// keeping ordering and backpressure with its single upstream source.
//
// Grounded on original_source/client/SPProtoDecoder.c for the state
// machine and decode algorithm; the header offset/MTU math lives in
// sibling package spproto, the OTP checker in otp, and crypto primitives
// in cryptoprim. Cross-goroutine handoff (worker completion needs to run
// on the decoder's single owner context, per spec §5) has no teacher
// precedent — the teacher's session code is fully synchronous — so it is
// built directly on sync.Mutex + a signalling channel; see DESIGN.md for
// why no example library fits this narrowly-scoped internal handoff.
package decoder

import (
	"sync"

	"github.com/reflexdp/dataplane/assert"
	"github.com/reflexdp/dataplane/cryptoprim"
	"github.com/reflexdp/dataplane/errors"
	"github.com/reflexdp/dataplane/otp"
	"github.com/reflexdp/dataplane/packetpass"
	"github.com/reflexdp/dataplane/spproto"
	"github.com/reflexdp/dataplane/workerpool"
)

// state is the input-channel × worker state machine from spec §4.5.
type state uint8

const (
	stateIdle state = iota
	stateDecoding
	stateAwaitingOutput
)

// Option configures a Decoder at construction time.
type Option func(*Decoder)

// WithHasher overrides the default KeyedHasher (cryptoprim.HMACSHA256{}).
func WithHasher(h cryptoprim.KeyedHasher) Option {
	return func(d *Decoder) { d.hasher = h }
}

// WithHashKey sets the static key used for hash verification. Unlike the
// encryption key, the hash key never rotates at runtime in the original
// (BHash_calculate takes no key at all there); this module widens the
// hash to a keyed HMAC per SPEC_FULL's DOMAIN STACK choice, so it needs a
// key from somewhere — WithHashKey supplies it once, to New. Required
// whenever params.HaveHash is true.
func WithHashKey(key []byte) Option {
	return func(d *Decoder) { d.hashKey = append([]byte(nil), key...) }
}

// WithDecrypterFactory overrides how SetEncryptionKey turns a raw key into
// a cryptoprim.BlockDecrypter. Defaults to cryptoprim.NewAESCBCDecrypter.
func WithDecrypterFactory(f func(key []byte) (cryptoprim.BlockDecrypter, error)) Option {
	return func(d *Decoder) { d.decrypterFactory = f }
}

// WithLogger overrides the default errors.NopLogger for runtime data
// faults (spec §7's second class).
func WithLogger(l errors.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// Decoder is the Secure-Protocol Decoder. The zero value is not usable;
// construct with New.
type Decoder struct {
	output *packetpass.Channel
	input  *packetpass.Channel

	params spproto.Params
	pool   *workerpool.Pool

	decrypterFactory func(key []byte) (cryptoprim.BlockDecrypter, error)
	decrypter        cryptoprim.BlockDecrypter // nil iff no key set

	hasher  cryptoprim.KeyedHasher
	hashKey []byte

	logger errors.Logger

	otpTable *otp.SeedTable

	scratch []byte

	state    state
	handle   *workerpool.Handle
	inflight []byte // captured (in, in_len) while decoding/awaiting-output

	// generation increments on every submitted decode; a completion
	// carrying a stale generation is from a decode that was since
	// cancelled (and possibly superseded by a new one) and must be
	// discarded rather than misapplied to whatever is decoding now.
	generation uint64

	// Cross-goroutine handoff from the worker pool back to the owner
	// context (spec §5's "completion callback on originating context").
	// mu guards only `pending`; everything else above is owner-context-only.
	mu      sync.Mutex
	pending *pendingResult
	notify  chan struct{}
}

type pendingResult struct {
	gen    uint64
	result decodeResult
}

// New constructs a Decoder delivering onto output. numOTPSeeds is only
// consulted when params.HaveOTP is true, and must then be >= 2 (spec
// §4.4's precondition, enforced by otp.NewSeedTable).
func New(output *packetpass.Channel, params spproto.Params, numOTPSeeds int, pool *workerpool.Pool, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		output: output,
		params: params,
		pool:   pool,
		hasher: cryptoprim.HMACSHA256{},
		decrypterFactory: func(key []byte) (cryptoprim.BlockDecrypter, error) {
			return cryptoprim.NewAESCBCDecrypter(key)
		},
		logger: errors.NopLogger{},
		notify: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	if params.HaveHash && len(d.hashKey) == 0 {
		return nil, errors.New("decoder: hash enabled but no hash key configured").AtError()
	}
	if params.HaveOTP {
		table, err := otp.NewSeedTable(numOTPSeeds, 0)
		if err != nil {
			return nil, errors.New("decoder: otp checker init").Base(err).AtError()
		}
		d.otpTable = table
	}

	carrierMTU := params.CarrierMTU(output.MTU())
	d.scratch = make([]byte, carrierMTU)
	d.input = packetpass.New(carrierMTU)
	d.input.Init(d.handleInput)
	output.SetDoneHandler(d.handleOutputDone)
	return d, nil
}

// GetInput returns the PacketPass channel the upstream producer sends
// into (spec §4.4).
func (d *Decoder) GetInput() *packetpass.Channel { return d.input }

// Notify returns a channel that receives a value whenever a background
// decode has completed and Pump needs to be called to process it on the
// owner context. Callers embed this in their own select loop; it is the
// only piece of Decoder state safe to touch from outside the owner
// context.
func (d *Decoder) Notify() <-chan struct{} { return d.notify }

// Pump processes at most one pending worker completion, if any, on the
// calling goroutine. Callers must only call Pump from the decoder's owner
// context, in response to a receive on Notify().
func (d *Decoder) Pump() {
	d.mu.Lock()
	p := d.pending
	d.pending = nil
	d.mu.Unlock()
	if p == nil {
		return
	}
	if p.gen != d.generation || d.state != stateDecoding {
		// This decode was cancelled (spec §4.5 transition 4) — possibly
		// superseded by a newer one — before its result made it back.
		// The Cancel path already acknowledged the upstream; there is
		// nothing left to do with a result that arrived too late.
		return
	}
	d.handleWorkComplete(p.result)
}

// SetEncryptionKey installs key as the active decryption key, cloning it
// (spec §5: "key material is cloned in on set_encryption_key"). Any
// packet currently decoding is cancelled and dropped first (spec §4.5
// transition 4).
func (d *Decoder) SetEncryptionKey(key []byte) error {
	dec, err := d.decrypterFactory(append([]byte(nil), key...))
	if err != nil {
		return errors.New("decoder: set_encryption_key").Base(err).AtError()
	}
	d.cancelDecodingInFlight()
	d.decrypter = dec
	return nil
}

// RemoveEncryptionKey clears the active decryption key. Any packet
// currently decoding is cancelled and dropped first.
func (d *Decoder) RemoveEncryptionKey() {
	d.cancelDecodingInFlight()
	d.decrypter = nil
}

// cancelDecodingInFlight aborts the in-flight worker only when the
// decoder is actually mid-decode; a packet already handed downstream
// (awaiting-output) is left alone per spec §4.5 transition 4.
//
// Cancel joins a worker that has already started (see workerpool), so by
// the time this returns the old decrypter is guaranteed to be done reading
// d.scratch — handleInput is free to hand that same buffer to a brand new
// decode right after, with no risk of the cancelled worker still writing
// into it.
func (d *Decoder) cancelDecodingInFlight() {
	if d.state != stateDecoding {
		return
	}
	d.handle.Cancel()
	d.handle = nil
	d.inflight = nil
	d.state = stateIdle
	d.input.Done()
}

// AddOTPSeed registers key/iv for seedID with the decoder's OTP checker.
// Valid only when the decoder was constructed with params.HaveOTP true.
func (d *Decoder) AddOTPSeed(seedID uint16, key, iv []byte) {
	assert.That(d.otpTable != nil, "add_otp_seed: otp not enabled")
	d.otpTable.AddSeed(seedID, key, iv)
}

// RemoveOTPSeeds clears every registered OTP seed.
func (d *Decoder) RemoveOTPSeeds() {
	assert.That(d.otpTable != nil, "remove_otp_seeds: otp not enabled")
	d.otpTable.RemoveSeeds()
}

// SetOTPHandler registers cb to be invoked on OTP state transitions of
// interest (spec §4.4), delegated to the OTP collaborator's own event
// stream.
func (d *Decoder) SetOTPHandler(cb func(otp.Event)) {
	if d.otpTable != nil {
		d.otpTable.SetHandler(cb)
	}
}

// handleInput is the input channel's onSend handler: it runs synchronously
// inside GetInput().Send, with the channel already marked in-flight (spec
// §4.5 transition 1).
func (d *Decoder) handleInput(buf []byte) {
	assert.That(d.state == stateIdle, "decoder: send while not idle")
	d.inflight = buf
	d.state = stateDecoding
	d.generation++
	gen := d.generation

	work := decodeInput{
		in:        buf,
		scratch:   d.scratch,
		params:    d.params,
		decrypter: d.decrypter,
		hasher:    d.hasher,
		hashKey:   d.hashKey,
		outputMTU: d.output.MTU(),
	}
	d.handle = d.pool.Submit(
		func() interface{} { return decodeWork(work) },
		func(result interface{}) { d.deliverFromWorker(gen, result.(decodeResult)) },
	)
}

// deliverFromWorker runs on the worker pool's goroutine (spec §5: "the
// only piece of logic that may run off the owner context" is decodeWork
// itself, but the handoff back has to originate somewhere off-context
// too). It only ever writes the mutex-guarded pending slot and pings
// notify; all decoding-result handling happens later in handleWorkComplete
// on the owner context via Pump. gen is captured by value at submission
// time, so it needs no synchronization of its own.
func (d *Decoder) deliverFromWorker(gen uint64, r decodeResult) {
	d.mu.Lock()
	d.pending = &pendingResult{gen: gen, result: r}
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// handleWorkComplete implements spec §4.5 transition 2, on the owner
// context (called from Pump).
func (d *Decoder) handleWorkComplete(r decodeResult) {
	d.handle = nil

	if !r.ok {
		d.logger.Log(errors.New("decoder: reject").WithKind(errors.Kind(r.reason)).AtWarning())
		d.finishDrop()
		return
	}

	if d.params.HaveOTP && !d.otpTable.CheckOTP(r.seedID, r.otp) {
		d.logger.Log(errors.New("decoder: otp check failed").AtWarning())
		d.finishDrop()
		return
	}

	d.state = stateAwaitingOutput
	d.output.Send(r.payload)
}

// finishDrop implements the reject path shared by decode failure and OTP
// failure: acknowledge the upstream and return to idle without ever
// calling output.Send.
func (d *Decoder) finishDrop() {
	d.state = stateIdle
	d.inflight = nil
	d.input.Done()
}

// handleOutputDone implements spec §4.5 transition 3.
func (d *Decoder) handleOutputDone() {
	assert.That(d.state == stateAwaitingOutput, "decoder: output done while not awaiting")
	d.state = stateIdle
	d.inflight = nil
	d.input.Done()
}
