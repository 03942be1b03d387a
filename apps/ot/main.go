//
// main.go
//
// Copyright (c) 2019-2026 Markku Rossi
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
	"github.com/markkurossi/otpsi/otsession"
)

func main() {
	receiver := flag.Bool("r", false, "receiver / sender mode")
	configFile := flag.String("config", "", "YAML configuration `file`")
	flag.String("host", otsession.DefaultHost, "server host")
	flag.Int("port", otsession.DefaultPort, "server port")
	flag.String("name", "", "connection name")
	flag.Int("threads", otsession.DefaultNumThreads, "number of threads")
	flag.Int("ots", otsession.DefaultTotalOTs, "number of OTs")
	flag.Int("msgs", otsession.DefaultNumChosenMsgs,
		"number of messages per OT")
	flag.Bool("malicious", false, "malicious security")
	flag.Int("stat-sec", otsession.DefaultStatSecParam,
		"statistical security parameter")
	flag.Int("input-bits", otsession.DefaultInputBitCount, "input bit count")
	flag.Bool("tls", false, "use TLS")
	flag.String("ca", "", "root CA `file`")
	flag.String("cert", "", "server certificate `file`")
	flag.String("key", "", "server private key `file`")
	flag.Bool("diff", false, "send a different message vector per OT")
	flag.Int("v", 0, "log verbosity")
	flag.Parse()

	log.SetFlags(0)

	v, err := readConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	config := sessionConfig(v)
	useTLS := v.GetBool("tls")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *receiver {
		err = receive(ctx, config, useTLS)
	} else {
		err = send(ctx, config, useTLS, v.GetBool("diff"))
	}
	if err != nil {
		log.Fatal(err)
	}
}

func receive(ctx context.Context, config otsession.Config, useTLS bool) error {
	choices := make([]uint64, config.TotalOTs)
	for i := range choices {
		choices[i] = uint64(i % config.NumChosenMsgs)
	}
	r := otsession.NewReceiver(config)
	result, err := r.ExecutePairs(ctx, choices, useTLS)
	if err != nil {
		return err
	}
	for i, p := range result {
		if i >= 10 {
			fmt.Printf("... %d more\n", len(result)-i)
			break
		}
		fmt.Printf("%6d: (%d,%d)\n", i, p.First, p.Second)
	}
	r.Timing().Print(os.Stdout, r.Stats())
	return nil
}

func send(ctx context.Context, config otsession.Config, useTLS, diff bool) error {
	s := otsession.NewSender(config)

	if diff {
		messages := make([][]ot.Pair, config.TotalOTs)
		for i := range messages {
			messages[i] = make([]ot.Pair, config.NumChosenMsgs)
			for j := range messages[i] {
				messages[i][j] = ot.Pair{
					First:  uint64(i),
					Second: uint64(j),
				}
			}
		}
		if err := s.ExecuteDiffPairs(ctx, messages, useTLS); err != nil {
			return err
		}
	} else {
		messages := make([]ot.Pair, config.NumChosenMsgs)
		for j := range messages {
			messages[j] = ot.Pair{
				Second: uint64(j),
			}
		}
		if err := s.ExecuteSamePairs(ctx, messages, useTLS); err != nil {
			return err
		}
	}
	s.Timing().Print(os.Stdout, s.Stats())
	return nil
}
