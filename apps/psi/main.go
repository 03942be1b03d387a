//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/markkurossi/otpsi/ot"
	"github.com/markkurossi/otpsi/psi"
)

func main() {
	receiver := flag.Bool("r", false, "receiver / sender mode")
	configFile := flag.String("config", "", "YAML configuration `file`")
	flag.String("scheme", psi.KKRT16.String(), "PSI scheme")
	flag.Int("set-size", 8, "input set size")
	flag.Int("stat-sec", psi.DefaultStatSecParam,
		"statistical security parameter")
	flag.Int("threads", psi.DefaultNumThreads, "number of channels")
	flag.String("host", psi.DefaultHost, "server host")
	flag.Int("port", psi.DefaultPort, "server port")
	flag.String("name", psi.DefaultConnectionName, "connection name")
	flag.Bool("tls", true, "use TLS")
	flag.String("ca", "", "root CA `file`")
	flag.String("cert", "", "server certificate `file`")
	flag.String("key", "", "server private key `file`")
	flag.Float64("eps-bin", psi.DefaultEpsBin, "bin load epsilon")
	flag.Float64("bin-scaler", psi.DefaultBinScaler, "bin count scaler")
	flag.Int("bit-size", 0, "input bit size, 0 derives from set size")
	flag.Int("v", 0, "log verbosity")
	flag.Parse()

	log.SetFlags(0)

	v, err := readConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	config := psiConfig(v)
	scheme := v.GetString("scheme")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Demo sets: the sets intersect at the even indices.
	set := make([]ot.Pair, config.SetSize)
	for i := range set {
		set[i].First = uint64(i)
		if *receiver {
			set[i].Second = uint64(i + i%2)
		} else {
			set[i].Second = uint64(i)
		}
	}

	if *receiver {
		r := psi.NewReceiver(config)
		result, err := r.ExecuteNamePairs(ctx, scheme, set)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s intersection: %v\n", psi.ParseScheme(scheme), result)
		r.Timing().Print(os.Stdout, r.Stats())
	} else {
		s := psi.NewSender(config)
		if err := s.ExecuteNamePairs(ctx, scheme, set); err != nil {
			log.Fatal(err)
		}
		s.Timing().Print(os.Stdout, s.Stats())
	}
}
