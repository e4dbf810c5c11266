package rpc

import (
	"testing"

	"github.com/haldag/haldag/utils"
)

func TestHandlerPaths(t *testing.T) {
	if err := utils.TCheckString("joint range path",
		"/v1/joint/query-via-range", QueryJointViaRangeV1Path); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckString("joint hash path",
		"/v1/joint/query-via-hash", QueryJointViaHashV1Path); err != nil {
		t.Fatal(err)
	}
	if err := utils.TCheckString("sync status path",
		"/v1/sync/status", QuerySyncStatusV1Path); err != nil {
		t.Fatal(err)
	}

	registered := len(jointHandlers) + len(syncHandlers)
	if err := utils.TCheckInt("registered handlers", 3, registered); err != nil {
		t.Fatal(err)
	}
}
