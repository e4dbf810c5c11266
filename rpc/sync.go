package rpc

import "net/http"

const (
	syncPath = "/sync"
)

var (
	// SyncV1Path /v1/sync
	SyncV1Path = version1Path + syncPath

	// QuerySyncStatusV1Path GET /v1/sync/status
	QuerySyncStatusV1Path = SyncV1Path + "/status"

	syncHandlers = HTTPHandlers{
		{QuerySyncStatusV1Path, getSyncStatus},
	}
)

type SyncStatusJSON struct {
	State         string `json:"state"`
	LastStableMCI uint64 `json:"last_stable_mci"`
	LastKnownMCI  uint64 `json:"last_known_mci"`
	QueuedBalls   int    `json:"queued_balls"`
}

/*
GET /v1/sync/status
*/

type getSyncStatusResponse = SyncStatusJSON

func getSyncStatus(w http.ResponseWriter, r *http.Request) {
	info := globalSvr.c.QuerySyncInfo()

	resp := &SyncStatusJSON{
		State:         info.State,
		LastStableMCI: info.LastStableMCI,
		LastKnownMCI:  info.LastKnownMCI,
		QueuedBalls:   info.QueuedBalls,
	}
	successWithDataResponse(resp, w)
}
