package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pipeline entities carry deterministic ids derived from their inputs so a
// re-run over the same snapshot lands on identical rows instead of
// duplicating them. The namespace is fixed for the lifetime of the schema.
var pipelineNamespace = uuid.MustParse("7f1c3c52-9a41-4e2b-8a63-5d0f4b7c2e19")

func deterministicID(parts ...string) uuid.UUID {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "|"
		}
		name += p
	}
	return uuid.NewSHA1(pipelineNamespace, []byte(name))
}

func baselineID(tenantID, subjectID uuid.UUID, metricType string, periodDays int, windowEnd time.Time) uuid.UUID {
	return deterministicID("baseline", tenantID.String(), subjectID.String(), metricType,
		fmt.Sprintf("%d", periodDays), windowEnd.UTC().Format(time.RFC3339))
}

func anomalyID(observationID uuid.UUID) uuid.UUID {
	return deterministicID("anomaly", observationID.String())
}

func riskScoreID(tenantID, subjectID uuid.UUID, riskType string, windowEnd time.Time, factorsHash string) uuid.UUID {
	return deterministicID("risk_score", tenantID.String(), subjectID.String(), riskType,
		windowEnd.UTC().Format(time.RFC3339), factorsHash)
}

func issueID(tenantID, subjectID uuid.UUID, riskType string) uuid.UUID {
	return deterministicID("issue", tenantID.String(), subjectID.String(), riskType)
}

func escalationID(issueID uuid.UUID, windowEnd time.Time) uuid.UUID {
	return deterministicID("escalation", issueID.String(), windowEnd.UTC().Format(time.RFC3339))
}

func hashCanonical(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
