package main

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/haldag/haldag/rpc"
	"github.com/haldag/haldag/utils"
)

type httpClient struct {
	serverIP   string
	serverPort string
	scheme     string
	client     *http.Client
}

func newHTTPClient(ip string, port int, scheme string) *httpClient {
	return &httpClient{
		serverIP:   ip,
		serverPort: strconv.Itoa(port),
		scheme:     scheme,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (hc *httpClient) querySyncStatus() error {
	var err error
	var req *http.Request
	var httpResp *http.Response
	var rpcResp *rpc.HTTPResponse

	if req, err = hc.genRequest(http.MethodGet, rpc.QuerySyncStatusV1Path,
		nil, nil); err != nil {
		return err
	}

	if httpResp, err = hc.client.Do(req); err != nil {
		return fmt.Errorf("do request err:%v", err)
	}
	defer httpResp.Body.Close()

	statusJSON := &rpc.SyncStatusJSON{}
	if rpcResp, err = hc.parseResponse(httpResp, statusJSON); err != nil {
		return err
	}

	handler := func() {
		content := "State\t\t%s\nLastStableMCI\t%d\nLastKnownMCI\t%d\nQueuedBalls\t%d\n"
		fmt.Printf(content, statusJSON.State, statusJSON.LastStableMCI,
			statusJSON.LastKnownMCI, statusJSON.QueuedBalls)
	}
	hc.responseHandle(rpcResp, handler)

	return nil
}

func (hc *httpClient) queryJoints(params string) error {
	hexHashs := strings.Split(params, ",")
	for _, hash := range hexHashs {
		h, err := utils.FromHex(hash)
		if err != nil || len(h) != utils.HashLength {
			return fmt.Errorf("invalid unit hash %s", hash)
		}
	}

	var err error
	var req *http.Request
	var httpResp *http.Response
	var rpcResp *rpc.HTTPResponse

	if req, err = hc.genRequest(http.MethodGet, rpc.QueryJointViaHashV1Path,
		[]string{rpc.GetHashParam}, []string{params}); err != nil {
		return err
	}

	if httpResp, err = hc.client.Do(req); err != nil {
		return fmt.Errorf("do request err:%v", err)
	}
	defer httpResp.Body.Close()

	jointsResponse := &rpc.GetJointsResponse{}
	if rpcResp, err = hc.parseResponse(httpResp, jointsResponse); err != nil {
		return err
	}

	hc.responseHandle(rpcResp, func() { printJoints(jointsResponse) })
	return nil
}

func (hc *httpClient) queryRange(params string) error {
	var err error
	var req *http.Request
	var httpResp *http.Response
	var rpcResp *rpc.HTTPResponse

	if req, err = hc.genRequest(http.MethodGet, rpc.QueryJointViaRangeV1Path,
		[]string{rpc.GetRangeParam}, []string{params}); err != nil {
		return err
	}

	if httpResp, err = hc.client.Do(req); err != nil {
		return fmt.Errorf("do request err:%v", err)
	}
	defer httpResp.Body.Close()

	jointsResponse := &rpc.GetJointsResponse{}
	if rpcResp, err = hc.parseResponse(httpResp, jointsResponse); err != nil {
		return err
	}

	hc.responseHandle(rpcResp, func() { printJoints(jointsResponse) })
	return nil
}

func printJoints(resp *rpc.GetJointsResponse) {
	for _, joint := range resp.Data {
		jointContent := `
Joint <%s> MCI:%d Stable:%v
Time		%s
Version		%d
Ball		%s
Authors		%s
Parents		%s
LastBallUnit	%s
LastBall	%s

`
		fmt.Printf(jointContent, joint.Unit, joint.MCI, joint.Stable,
			utils.TimeToString(joint.Time),
			joint.Version,
			joint.Ball,
			strings.Join(joint.Authors, ","),
			strings.Join(joint.Parents, ","),
			joint.LastBallUnit,
			joint.LastBall,
		)

		fmt.Println("--------------------------------------------------------")
	}
}

func (hc *httpClient) genRequest(method string, path string, key, value []string) (*http.Request, error) {
	u, _ := url.Parse(hc.scheme + "://" + hc.serverIP + ":" + hc.serverPort)
	u.Path = path

	q := u.Query()
	for i := 0; i < len(key); i++ {
		q.Add(key[i], value[i])
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("generate query failed:%v", err)
	}

	return req, nil
}

func (hc *httpClient) parseResponse(resp *http.Response, data interface{}) (*rpc.HTTPResponse, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed, return:%d", resp.StatusCode)
	}

	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read http body failed:%v", err)
	}

	httpResponse := rpc.ParseHTTPResponse(bodyBytes, data)
	if httpResponse == nil {
		return nil, fmt.Errorf("unmarshal response json failed")
	}

	return httpResponse, nil
}

func (hc *httpClient) responseHandle(httpResponse *rpc.HTTPResponse, f func()) {
	switch httpResponse.Code {
	case rpc.CodeSuccess:
		f()
	case rpc.CodeFailed:
		fmt.Printf("failed: %s\n", httpResponse.Message)
	case rpc.CodeBadRequest:
		fmt.Println("bad request, please check your input")
	default:
		fmt.Printf("response unknown code:%d\n", httpResponse.Code)
	}
}
