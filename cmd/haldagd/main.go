package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"net/http"
	_ "net/http/pprof"

	"github.com/btcsuite/btcd/btcec"
	"github.com/haldag/haldag/core"
	"github.com/haldag/haldag/core/dagchain"
	"github.com/haldag/haldag/crypto"
	"github.com/haldag/haldag/db"
	"github.com/haldag/haldag/p2p"
	"github.com/haldag/haldag/p2p/peer"
	"github.com/haldag/haldag/rpc"
	"github.com/haldag/haldag/utils"
)

func main() {
	// load the config file
	cf := flag.String("c", "", "config file")
	pprofPort := flag.Int("pprof", 0, "pprof port, used by developers")
	flag.Parse()

	conf, err := parseConfig(*cf)
	if err != nil {
		log.Fatal(err)
	}
	utils.SetLogLevel(conf.LogLevel)
	logger := utils.GetStdoutLog()

	// load the key
	var privKey *btcec.PrivateKey
	if conf.Key.Type == crypto.PlainKeyType {
		privKey, err = crypto.RestorePKey(conf.Key.Path)
		if err != nil {
			logger.Fatal("restore pKey failed:%v\n", err)
		}
	}
	if conf.Key.Type == crypto.SealKeyType {
		privKey, err = crypto.RestoreSKey(conf.Key.Path)
		if err != nil {
			logger.Fatal("restore sKey failed:%v\n", err)
		}
	}

	// p2p peer provider
	provider := peer.NewStaticProvider()
	seeds, err := parseSeeds(conf.Seeds)
	if err != nil {
		logger.Fatal("parse seeds failed:%v\n", err)
	}
	provider.AddSeeds(seeds)
	provider.Start()

	// p2p node
	nodeConfig := &p2p.Config{
		NodeIP:     conf.IP,
		NodePort:   conf.Port,
		Provider:   provider,
		MaxPeerNum: conf.MaxPeers,
		PrivKey:    privKey,
		Type:       conf.NodeType,
		NetworkID:  conf.NetworkID,
	}
	node := p2p.NewNode(nodeConfig)
	node.Start()

	// db
	if err = db.Init(conf.DataPath); err != nil {
		logger.Fatal("init db failed:%v\n", err)
	}
	logger.Info("database initialize successfully under the data path:%s\n", conf.DataPath)

	// core module
	coreInstance := core.NewCore(&core.Config{
		Node: node,

		Config: &dagchain.Config{
			Genesis:   conf.Genesis,
			Witnesses: conf.Witnesses,
		},
	})

	// local http server
	httpConfig := &rpc.Config{
		Port: conf.HTTPPort,
		C:    coreInstance,
	}
	httpServer := rpc.NewServer(httpConfig)
	httpServer.Start()

	//pprof
	if *pprofPort != 0 {
		go func() {
			pprofAddress := fmt.Sprintf("localhost:%d", *pprofPort)
			log.Println(http.ListenAndServe(pprofAddress, nil))
		}()
	}

	// waiting gracefully shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)
	signal.Notify(sc, syscall.SIGTERM)
	select {
	case <-sc:
		logger.Infoln("Quiting......")
		httpServer.Stop()
		coreInstance.Stop()
		node.Stop()
		db.Close()
		logger.Infoln("Bye!")
		return
	}
}
