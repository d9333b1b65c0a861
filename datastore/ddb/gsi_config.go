/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"strings"

	"github.com/suparena/remotestore/storagemodels"
)

// GSIConfig names a secondary index and its key attributes.
type GSIConfig struct {
	IndexName        string
	PartitionKeyName string
	SortKeyName      string
}

// RemoteIDIndex is the sparse index holding one entry per item that has a
// remote id. Index maps opt in by defining PK1 with a {remote_id} macro, as
// registry.DefaultIndexMap does. Tables without it fall back to scans.
var RemoteIDIndex = GSIConfig{
	IndexName:        "GSI1",
	PartitionKeyName: "PK1",
	SortKeyName:      "SK1",
}

// remoteIDTemplate returns the partition key template of the remote id
// index, if the index map defines one that expands the remote id.
func remoteIDTemplate(indexMap map[string]string) (string, bool) {
	template, ok := indexMap[RemoteIDIndex.PartitionKeyName]
	if !ok || !strings.Contains(template, "{"+storagemodels.AttrRemoteID+"}") {
		return "", false
	}
	return template, true
}
