package main

import (
	"flag"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/graceful"

	"github.com/ygfweb/imgkit"
	"github.com/ygfweb/imgkit/server"
)

var (
	flags    = flag.NewFlagSet("imgkit", flag.ExitOnError)
	confFile = flags.String("config", "", "path to config file")
)

func main() {
	var err error
	flags.Parse(os.Args[1:])

	conf, err := server.NewConfigFromFile(*confFile, os.Getenv("CONFIG"))
	if err == server.ErrNoConfigFile {
		logrus.Warn("no config file given, using defaults")
		conf, err = server.NewConfig(), nil
	}
	if err != nil {
		logrus.Fatal(err)
	}

	srv := server.New(conf)
	if err := srv.Configure(); err != nil {
		logrus.Fatal(err)
	}

	logrus.Infof("** imgkit server v%s at %s **", imgkit.VERSION, srv.Config.Bind)
	logrus.Infof("** Engine: %s", srv.ImageEngine.Version())

	graceful.AddSignal(syscall.SIGINT, syscall.SIGTERM)
	graceful.Timeout(30 * time.Second)
	graceful.PreHook(srv.Close)
	graceful.PostHook(srv.Shutdown)

	if srv.Config.SSL.Cert != "" && srv.Config.SSL.Key != "" {
		err = graceful.ListenAndServeTLS(srv.Config.Bind, srv.Config.SSL.Cert, srv.Config.SSL.Key, srv.NewRouter())
	} else {
		err = graceful.ListenAndServe(srv.Config.Bind, srv.NewRouter())
	}
	if err != nil {
		logrus.Fatal(err.Error())
	}
	graceful.Wait()
}
