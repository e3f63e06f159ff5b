package record

import "crypto/sha256"

// Wire layout of the IncidentAnchor account payload. Offsets are relative to
// the first byte after the discriminator.
const (
	DiscriminatorSize = 8
	MaxPacketURILen   = 200

	OffsetOperator              = 0
	OffsetIncidentID            = 32
	OffsetIncidentCoreHash      = 40
	OffsetEvidenceSetHash       = 72
	OffsetContradictionsHash    = 104
	OffsetTrustReceiptHash      = 136
	OffsetOperatorDecisionsHash = 168
	OffsetTimelineHash          = 200
	OffsetBundleRootHash        = 232
	OffsetEventChainHead        = 264
	OffsetEventCount            = 296
	OffsetOperatorRole          = 300
	OffsetSupervisor            = 301
	OffsetRequiresApproval      = 334
	OffsetApprovalTimestamp     = 335
	OffsetPacketURI             = 344
	OffsetCreatedAt             = 548
	OffsetUpdatedAt             = 556
	OffsetBump                  = 564

	PayloadSize = 565
	AccountSize = DiscriminatorSize + PayloadSize
)

// AccountName is the account type name hashed into the discriminator.
const AccountName = "IncidentAnchor"

// Discriminator is the first 8 bytes of SHA-256("account:IncidentAnchor").
var Discriminator = func() [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + AccountName))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}()
