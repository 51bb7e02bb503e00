package graph

import (
	"github.com/google/uuid"
)

// instanceNamespace is the fixed UUIDv5 namespace for instance identity.
// Never change it: re-runs of materialization rely on the same input tuple
// hashing to the same node id.
var instanceNamespace = uuid.MustParse("8f0f3c0a-5b2e-4f7d-9c3e-2a1d6b4e8c90")

// InstanceID derives the deterministic identity of a materialized instance
// from (project, source record, class). Re-running materialization on the
// same inputs MERGEs onto the same node instead of duplicating it.
func InstanceID(projectID, sourceRecordID uuid.UUID, className string) uuid.UUID {
	name := projectID.String() + "/" + sourceRecordID.String() + "/" + className
	return uuid.NewSHA1(instanceNamespace, []byte(name))
}
