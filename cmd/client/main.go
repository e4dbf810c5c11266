package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	configFile := flag.String("c", "./config.json", "the client config file")
	qs := flag.Bool("qs", false, "query the node synchronization status")
	qj := flag.String("qj", "", `query joints via unit hash, you can seperate multiple parameters with ","`)
	qr := flag.String("qr", "", `query the specified mci joints information,
support range format like "1-100", or multiple mci seperated with ",", or the last stable joint with -1`)
	flag.Parse()

	var err error
	var conf *config
	if len(*configFile) == 0 {
		fmt.Println("not found config file")
		return
	}
	if conf, err = parseConfig(*configFile); err != nil {
		fmt.Println(err)
		return
	}
	client := newHTTPClient(conf.ServerIP, conf.ServerPort, conf.Scheme)

	if *qs {
		err = client.querySyncStatus()
	} else if len(*qj) != 0 {
		err = client.queryJoints(*qj)
	} else if len(*qr) != 0 {
		err = client.queryRange(*qr)
	} else {
		fmt.Printf("unknown operation")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Filed:%v.\n", err)
		os.Exit(1)
	}
	fmt.Println("Finished.")
}
