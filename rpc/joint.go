package rpc

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/haldag/haldag/core"
	"github.com/haldag/haldag/utils"
)

const (
	jointPath = "/joint"
)

var (
	// JointsV1Path /v1/joint
	JointsV1Path = version1Path + jointPath

	// QueryJointViaRangeV1Path GET /v1/joint/query-via-range
	QueryJointViaRangeV1Path = JointsV1Path + "/query-via-range"

	// QueryJointViaHashV1Path GET /v1/joint/query-via-hash
	QueryJointViaHashV1Path = JointsV1Path + "/query-via-hash"

	jointHandlers = HTTPHandlers{
		{QueryJointViaRangeV1Path, getJointViaRange},
		{QueryJointViaHashV1Path, getJointViaHash},
	}
)

type GetJointsResponse struct {
	Data []*JointJSON `json:"data"`
}

type JointJSON struct {
	Version         uint8    `json:"version"`
	Time            int64    `json:"time"`
	Parents         []string `json:"parents"`
	Authors         []string `json:"authors"`
	PayloadHash     string   `json:"payload_hash"`
	WitnessListHash string   `json:"witness_list_hash"`
	LastBallUnit    string   `json:"last_ball_unit,omitempty"`
	LastBall        string   `json:"last_ball,omitempty"`
	Nonserial       bool     `json:"nonserial"`
	Unit            string   `json:"unit"`
	Ball            string   `json:"ball,omitempty"`
	MCI             uint64   `json:"mci"`
	Stable          bool     `json:"stable"`
}

func (j *JointJSON) fromJointInfo(info *core.JointInfo) {
	u := info.Joint.Unit
	j.Version = u.Version
	j.Time = u.Time
	for _, p := range u.Parents {
		j.Parents = append(j.Parents, utils.ToHex(p))
	}
	for _, a := range u.Authors {
		j.Authors = append(j.Authors, utils.ToHex(a))
	}
	j.PayloadHash = utils.ToHex(u.PayloadHash)
	j.WitnessListHash = utils.ToHex(u.WitnessListHash)
	if u.HasLastBall() {
		j.LastBallUnit = utils.ToHex(u.LastBallUnit)
		j.LastBall = utils.ToHex(u.LastBall)
	}
	j.Nonserial = u.IsNonserial()
	j.Unit = utils.ToHex(info.Hash)
	if info.Joint.HasBall() {
		j.Ball = utils.ToHex(info.Joint.Ball)
	}
	j.MCI = info.MCI
	j.Stable = info.Stable
}

func responseJoints(w http.ResponseWriter, joints []*core.JointInfo) {
	if len(joints) == 0 {
		failedResponse("not found", w)
		return
	}

	if len(joints) == 1 && joints[0] == nil {
		failedResponse("not found", w)
		return
	}

	resp := &GetJointsResponse{}
	for _, info := range joints {
		jointJSON := &JointJSON{}
		jointJSON.fromJointInfo(info)
		resp.Data = append(resp.Data, jointJSON)
	}

	successWithDataResponse(resp, w)
}

/*
GET /v1/joint/query-via-range?range=...

three kinds of range format:
1. from mci 1 to 100: 1-100
2. the specified mci: 128 or 1,50,200 (separate with ,)
3. the last stable joint: -1
*/

type getJointViaRangeResponse = GetJointsResponse

func getJointViaRange(w http.ResponseWriter, r *http.Request) {
	param, ok := r.URL.Query()[GetRangeParam]
	if !ok {
		badRequestResponse(w)
		return
	}

	// ..?range=xx
	mci, err := strconv.ParseInt(param[0], 10, 64)
	if err == nil {
		if mci == -1 {
			result := globalSvr.c.QueryLastStableJoint()
			responseJoints(w, []*core.JointInfo{result})
			return
		}

		if mci < 0 {
			badRequestResponse(w)
			return
		}

		result := globalSvr.c.QueryJointViaMCIs([]uint64{uint64(mci)})
		responseJoints(w, result)
		return
	}

	// ..?range=xx-yy
	if strings.Contains(param[0], "-") {
		var begin, end uint64
		n, err := fmt.Sscanf(param[0], "%d-%d", &begin, &end)
		if err != nil || n != 2 || begin >= end {
			badRequestResponse(w)
			return
		}

		result := globalSvr.c.QueryJointViaRange(begin, end)
		responseJoints(w, result)
		return
	}

	// ..?range=xx,yy,zz
	if strings.Contains(param[0], ",") {
		mcisStr := strings.Split(param[0], ",")
		var mcis []uint64
		for _, str := range mcisStr {
			mci, err := strconv.ParseUint(str, 10, 64)
			if err != nil {
				badRequestResponse(w)
				return
			}
			mcis = append(mcis, mci)
		}

		result := globalSvr.c.QueryJointViaMCIs(mcis)
		responseJoints(w, result)
		return
	}

	badRequestResponse(w)
}

/*
GET /v1/joint/query-via-hash?hash=...

format: xxx or xxx,xxx,xxx (separate with ,)
*/

type getJointViaHashResponse = GetJointsResponse

func getJointViaHash(w http.ResponseWriter, r *http.Request) {
	param, ok := r.URL.Query()[GetHashParam]
	if !ok {
		badRequestResponse(w)
		return
	}

	var queryHash []string
	if strings.Contains(param[0], ",") {
		queryHash = strings.Split(param[0], ",")
	} else {
		queryHash = []string{param[0]}
	}

	result := globalSvr.c.QueryJoint(queryHash)
	responseJoints(w, result)
}
