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
	"github.com/markkurossi/otpsi/psi"
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

func psiConfig(v *viper.Viper) psi.Config {
	stdr.SetVerbosity(v.GetInt("v"))
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	return psi.NewConfig(
		psi.WithSetSize(v.GetInt("set-size")),
		psi.WithStatSecParam(v.GetInt("stat-sec")),
		psi.WithThreads(v.GetInt("threads")),
		psi.WithAddress(v.GetString("host"), v.GetInt("port")),
		psi.WithConnectionName(v.GetString("name")),
		psi.WithTLS(v.GetBool("tls")),
		psi.WithRootCA(v.GetString("ca")),
		psi.WithServerCredentials(v.GetString("cert"), v.GetString("key")),
		psi.WithBinning(v.GetFloat64("eps-bin"), v.GetFloat64("bin-scaler")),
		psi.WithBitSize(v.GetInt("bit-size")),
		psi.WithEnv(&env.Config{
			Logger: logger,
		}))
}
