package config

import "testing"

func TestFairQueueConfigBuildRejectsZeroWeight(t *testing.T) {
	c := &FairQueueConfig{PacketWeight: 0}
	if _, err := c.Build(); err == nil {
		t.Fatalf("expected error for packetWeight=0")
	}
}

func TestFairQueueConfigBuildAppliesMaxTimeOverride(t *testing.T) {
	max := uint64(1000)
	c := &FairQueueConfig{PacketWeight: 1, MaxTime: &max}
	p, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.MaxTime != 1000 {
		t.Fatalf("MaxTime = %d, want 1000", p.MaxTime)
	}
}

func TestFairQueueConfigBuildDefaultsMaxTimeToZero(t *testing.T) {
	c := &FairQueueConfig{PacketWeight: 1}
	p, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.MaxTime != 0 {
		t.Fatalf("MaxTime = %d, want 0 (use package default)", p.MaxTime)
	}
}

func TestSecureDecoderConfigBuildDefaults(t *testing.T) {
	c := &SecureDecoderConfig{EncryptionEnabled: true}
	p, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Params.BlockSize != defaultBlockSize {
		t.Fatalf("BlockSize = %d, want %d", p.Params.BlockSize, defaultBlockSize)
	}
	if p.WorkerPoolSize != defaultWorkerPoolSize {
		t.Fatalf("WorkerPoolSize = %d, want %d", p.WorkerPoolSize, defaultWorkerPoolSize)
	}
}

func TestSecureDecoderConfigBuildRequiresHashKey(t *testing.T) {
	c := &SecureDecoderConfig{HashEnabled: true}
	if _, err := c.Build(); err == nil {
		t.Fatalf("expected error for hashEnabled without hashKeyHex")
	}
}

func TestSecureDecoderConfigBuildDecodesHashKey(t *testing.T) {
	c := &SecureDecoderConfig{HashEnabled: true, HashKeyHex: "deadbeef"}
	p, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.HashKey) != 4 || p.HashKey[0] != 0xde {
		t.Fatalf("HashKey = %x, want deadbeef", p.HashKey)
	}
}

func TestSecureDecoderConfigBuildRejectsBadHashKeyHex(t *testing.T) {
	c := &SecureDecoderConfig{HashEnabled: true, HashKeyHex: "not-hex"}
	if _, err := c.Build(); err == nil {
		t.Fatalf("expected error for malformed hashKeyHex")
	}
}

func TestSecureDecoderConfigBuildRejectsTooFewOTPSeeds(t *testing.T) {
	c := &SecureDecoderConfig{OTPEnabled: true, NumOTPSeeds: 1}
	if _, err := c.Build(); err == nil {
		t.Fatalf("expected error for numOtpSeeds < 2")
	}
}

func TestSecureDecoderConfigBuildDecodesOTPSeeds(t *testing.T) {
	c := &SecureDecoderConfig{
		OTPEnabled: true,
		OTPSeeds: []OTPSeedConfig{
			{SeedID: 1, KeyHex: "aabb", IVHex: "cc"},
		},
	}
	p, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.NumOTPSeeds != 2 {
		t.Fatalf("NumOTPSeeds = %d, want default 2", p.NumOTPSeeds)
	}
	if len(p.OTPSeeds) != 1 || p.OTPSeeds[0].SeedID != 1 {
		t.Fatalf("OTPSeeds = %+v", p.OTPSeeds)
	}
	if len(p.OTPSeeds[0].Key) != 2 || len(p.OTPSeeds[0].IV) != 1 {
		t.Fatalf("decoded key/iv lengths wrong: %+v", p.OTPSeeds[0])
	}
}
