//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/stdr"
	"github.com/spf13/viper"

	"github.com/markkurossi/otpsi/env"
	"github.com/markkurossi/otpsi/otsession"
)

// readConfig merges the command line flags with the optional YAML
// configuration file and OTPSI_ environment variables. Explicitly set
// flags take precedence.
func readConfig(file string) (*viper.Viper, error) {
	v := viper.New()
	flag.VisitAll(func(f *flag.Flag) {
		v.SetDefault(f.Name, f.Value.String())
	})
	v.SetEnvPrefix("otpsi")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if len(file) > 0 {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
	}
	flag.Visit(func(f *flag.Flag) {
		v.Set(f.Name, f.Value.String())
	})
	return v, nil
}

func sessionConfig(v *viper.Viper) otsession.Config {
	stdr.SetVerbosity(v.GetInt("v"))
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	return otsession.NewConfig(
		otsession.WithTotalOTs(v.GetInt("ots")),
		otsession.WithThreads(v.GetInt("threads")),
		otsession.WithAddress(v.GetString("host"), v.GetInt("port")),
		otsession.WithConnectionName(v.GetString("name")),
		otsession.WithRootCA(v.GetString("ca")),
		otsession.WithServerCredentials(v.GetString("cert"),
			v.GetString("key")),
		otsession.WithMalicious(v.GetBool("malicious")),
		otsession.WithStatSecParam(v.GetInt("stat-sec")),
		otsession.WithInputBitCount(v.GetInt("input-bits")),
		otsession.WithNumChosenMsgs(v.GetInt("msgs")),
		otsession.WithEnv(&env.Config{
			Logger: logger,
		}))
}
