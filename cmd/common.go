// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cmd

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"

	"github.com/echa/config"

	"github.com/Preciousbas/polichain-governance/gov"
	"github.com/Preciousbas/polichain-governance/rpc"
)

func newHTTPClient() (*http.Client, error) {
	// Set proxy function if there is a proxy configured.
	var proxyFunc func(*http.Request) (*url.URL, error)
	if purl := config.GetString("rpc.proxy"); purl != "" {
		proxyURL, err := url.Parse(purl)
		if err != nil {
			return nil, err
		}
		proxyFunc = http.ProxyURL(proxyURL)
	}

	client := http.Client{
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout:   config.GetDuration("rpc.dial_timeout"),
				KeepAlive: config.GetDuration("rpc.keepalive"),
			}).Dial,
			Proxy:                 proxyFunc,
			IdleConnTimeout:       config.GetDuration("rpc.idle_timeout"),
			ResponseHeaderTimeout: config.GetDuration("rpc.response_timeout"),
			ExpectContinueTimeout: config.GetDuration("rpc.continue_timeout"),
			MaxIdleConns:          config.GetInt("rpc.idle_conns"),
			MaxIdleConnsPerHost:   config.GetInt("rpc.idle_conns"),
		},
	}
	return &client, nil
}

// newTokenClient connects the remote token oracle configured under
// token.url.
func newTokenClient() (*rpc.Client, error) {
	c, err := newHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("token client: %v", err)
	}
	tokencli, err := rpc.NewClient(config.GetString("token.url"), c)
	if err != nil {
		return nil, fmt.Errorf("token client: %v", err)
	}
	tokencli.UserAgent = Ua()
	return tokencli, nil
}

// loadGenesis reads an optional genesis file referenced by genesis.path.
// A missing path is not an error, the engine falls back to its built-in
// default genesis on first run.
func loadGenesis() (*gov.Genesis, error) {
	path := config.GetString("genesis.path")
	if path == "" {
		return nil, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file %s: %v", path, err)
	}
	gen, err := gov.ReadGenesis(buf)
	if err != nil {
		return nil, fmt.Errorf("parsing genesis file %s: %v", path, err)
	}
	log.Infof("Using genesis file %s", path)
	return gen, nil
}
