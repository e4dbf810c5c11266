package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"strings"

	"github.com/haldag/haldag/crypto"
	"github.com/haldag/haldag/p2p/peer"
	"github.com/haldag/haldag/params"
	"github.com/haldag/haldag/utils"
)

type config struct {
	NodeType  params.NodeType `json:"node_type"`
	IP        string          `json:"ip"`
	Port      int             `json:"port"`
	Seeds     []string        `json:"seeds"`
	MaxPeers  int             `json:"max_peers"`
	LogLevel  int             `json:"log_level"`
	DataPath  string          `json:"data_path"`
	Key       keyConfig       `json:"key"`
	NetworkID uint8           `json:"network_id"`
	Genesis   string          `json:"genesis"`
	Witnesses []string        `json:"witnesses"`
	HTTPPort  int             `json:"http_port"`
}

type keyConfig struct {
	Type int    `json:"type"`
	Path string `json:"path"`
}

func parseConfig(cf string) (*config, error) {
	if len(cf) == 0 {
		return nil, fmt.Errorf("miss config file")
	}

	if err := utils.AccessCheck(cf); err != nil {
		return nil, err
	}

	jsonContent, err := ioutil.ReadFile(cf)
	if err != nil {
		return nil, fmt.Errorf("read config file failed:%v", err)
	}

	conf := &config{}
	if err := json.Unmarshal(jsonContent, &conf); err != nil {
		return nil, fmt.Errorf("config parse failed:%v", err)
	}

	if err := verifyConfig(conf); err != nil {
		return nil, err
	}

	return conf, nil
}

func verifyConfig(c *config) error {

	if c.NodeType != params.FullNode && c.NodeType != params.LightNode {
		return fmt.Errorf("invalid node type:%d", c.NodeType)
	}

	if c.NodeType == params.LightNode {
		return fmt.Errorf("Not support light node now")
	}

	if ip := net.ParseIP(c.IP); ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4:%s", c.IP)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port:%d", c.Port)
	}

	if c.MaxPeers <= 0 {
		return fmt.Errorf("invalid max peer number:%d", c.MaxPeers)
	}

	if c.LogLevel < utils.LogErrorLevel || c.LogLevel > utils.LogDebugLevel {
		return fmt.Errorf("invalid log level:%d", c.LogLevel)
	}

	if err := utils.AccessCheck(c.DataPath); err != nil {
		return err
	}
	fmt.Printf("data path:%s\n", c.DataPath)

	if c.Key.Type != crypto.SealKeyType && c.Key.Type != crypto.PlainKeyType {
		return fmt.Errorf("invalid key type")
	}

	if err := utils.AccessCheck(c.Key.Path); err != nil {
		return err
	}

	if len(c.Genesis) == 0 {
		return fmt.Errorf("invalid genesis")
	}

	if len(c.Witnesses) != params.WitnessCount {
		return fmt.Errorf("expect %d witnesses, got %d", params.WitnessCount, len(c.Witnesses))
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 || c.HTTPPort == c.Port {
		return fmt.Errorf("invalid http port:%d", c.HTTPPort)
	}

	return nil
}

// parseSeeds parses seeds in the "<ID>@<ip>:<port>" form
func parseSeeds(seeds []string) ([]*peer.Peer, error) {
	var result []*peer.Peer

	for _, seed := range seeds {
		sep := strings.Index(seed, "@")
		if sep <= 0 {
			return nil, fmt.Errorf("invalid seed %s, expect <ID>@<ip>:<port>", seed)
		}

		key := crypto.IDToPubKey(seed[:sep])
		if key == nil {
			return nil, fmt.Errorf("invalid seed ID in %s", seed)
		}

		ip, port := utils.ParseIPPort(seed[sep+1:])
		if ip == nil {
			return nil, fmt.Errorf("invalid seed address in %s", seed)
		}

		result = append(result, peer.NewPeer(ip, port, key))
	}

	return result, nil
}
