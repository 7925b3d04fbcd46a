package journal

import (
	"context"
	"fmt"

	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

const verifyPageSize = 200

// Verify walks a battle's journal and checks sequence continuity, hashes,
// chain links and signatures.
func Verify(ctx context.Context, events Lister, keyring *Keyring, battleID string) error {
	if events == nil {
		return fmt.Errorf("journal is required")
	}
	if keyring == nil {
		return fmt.Errorf("journal keyring is required")
	}
	var lastSeq uint64
	prevChainHash := ""
	for {
		page, err := events.List(ctx, battleID, lastSeq, verifyPageSize)
		if err != nil {
			return fmt.Errorf("list events battle_id=%s: %w", battleID, err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, evt := range page {
			if evt.Seq != lastSeq+1 {
				return gapError(battleID, lastSeq+1, evt.Seq)
			}
			if evt.PrevHash != prevChainHash {
				return integrityError(battleID, evt.Seq, "prev hash mismatch", nil)
			}
			hash, err := EventHash(evt)
			if err != nil {
				return integrityError(battleID, evt.Seq, "compute event hash", err)
			}
			if hash != evt.Hash {
				return integrityError(battleID, evt.Seq, "event hash mismatch", nil)
			}
			chainHash, err := ChainHash(evt, prevChainHash)
			if err != nil {
				return integrityError(battleID, evt.Seq, "compute chain hash", err)
			}
			if chainHash != evt.ChainHash {
				return integrityError(battleID, evt.Seq, "chain hash mismatch", nil)
			}
			if err := keyring.VerifyChainHash(battleID, chainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return integrityError(battleID, evt.Seq, "signature mismatch", err)
			}
			prevChainHash = evt.ChainHash
			lastSeq = evt.Seq
		}
	}
}

func gapError(battleID string, expected, got uint64) error {
	return apperrors.WithMetadata(apperrors.CodeJournalGap,
		fmt.Sprintf("event sequence gap battle_id=%s expected=%d got=%d", battleID, expected, got),
		map[string]string{"BattleID": battleID, "Expected": fmt.Sprint(expected), "Got": fmt.Sprint(got)})
}

func integrityError(battleID string, seq uint64, reason string, cause error) error {
	message := fmt.Sprintf("%s battle_id=%s seq=%d", reason, battleID, seq)
	metadata := map[string]string{"BattleID": battleID, "Seq": fmt.Sprint(seq)}
	if cause != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeJournalSignature, message, metadata, cause)
	}
	return apperrors.WithMetadata(apperrors.CodeJournalSignature, message, metadata)
}
