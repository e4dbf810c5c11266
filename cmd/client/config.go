package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"

	"github.com/haldag/haldag/utils"
)

type config struct {
	ServerIP   string `json:"server_ip"`
	ServerPort int    `json:"server_port"`
	Scheme     string `json:"scheme"`
}

func parseConfig(file string) (*config, error) {
	if err := utils.AccessCheck(file); err != nil {
		return nil, err
	}

	confB, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read config file failed:%v", err)
	}

	conf := &config{}
	if err := json.Unmarshal(confB, conf); err != nil {
		return nil, fmt.Errorf("parse json format failed:%v", err)
	}

	if err := verifyConfig(conf); err != nil {
		return nil, fmt.Errorf("verify failed:%v", err)
	}

	return conf, nil
}

func verifyConfig(c *config) error {
	if ip := net.ParseIP(c.ServerIP); ip == nil {
		return fmt.Errorf("invald ip")
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port")
	}

	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("invalid protocol")
	}

	return nil
}
