package main

import (
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthonyquizon/fswatch/pkg"
	"github.com/anthonyquizon/fswatch/pkg/client"
	"github.com/anthonyquizon/fswatch/pkg/filehandler"
	"github.com/anthonyquizon/fswatch/pkg/logger"
	"github.com/anthonyquizon/fswatch/pkg/model"
	"github.com/anthonyquizon/fswatch/pkg/server"
	"github.com/anthonyquizon/fswatch/pkg/user"
	"github.com/anthonyquizon/fswatch/pkg/watcher"
)

func main() {
	var config string
	var createUserFlag bool
	var deleteUserFlag bool
	var username string
	var password string

	flag.StringVar(&config, "config", "config.yml", "specify configuration file for service.")
	flag.StringVar(&config, "c", "config.yml", "specify configuration file for service.")
	flag.BoolVar(&createUserFlag, "create-user", false, "create user")
	flag.BoolVar(&deleteUserFlag, "delete-user", false, "delete user")
	flag.StringVar(&username, "username", "", "username for user management")
	flag.StringVar(&password, "password", "", "password for user management")
	flag.Parse()

	lg := log.New(os.Stdout, "fswatch --> ", 1|4)
	clg := logger.NewColorLogger(lg)
	clg.Printcf(logger.ColorGreen, "start fswatch : with config file %v", config)

	cfg, err := pkg.ReadConfig(config)
	if err != nil {
		clg.Printcf(logger.ColorRed, "error fswatch : got error %v on reading configuration file %s", err, config)
		os.Exit(1)
	}

	clg.Printcf(logger.ColorBlue, "config fswatch : type: %s, address: %s, path: %s", cfg.ServiceType, cfg.Address, cfg.Path)

	switch cfg.ServiceType {
	case pkg.WatchType:
		runWatch(cfg, clg)
	case pkg.ServerType:
		{
			var um *user.UserManager = nil
			if cfg.Server.PwFile != "" {
				um = &user.UserManager{PwFile: cfg.Server.PwFile}

				if err := um.Init(); err != nil {
					clg.Printcf(logger.ColorRed, "server error : failed user manager initialization. %v", err)
					os.Exit(1)
				}

				if createUserFlag {
					if err := um.CreateUser(user.Credential{Username: username, Password: password}); err != nil {
						clg.Printcf(logger.ColorRed, "server error : failed to create user. %v", err)
						os.Exit(1)
					}
					os.Exit(0)
				} else if deleteUserFlag {
					if err := um.DeleteUser(username); err != nil {
						clg.Printcf(logger.ColorRed, "server error : failed to delete user. %v", err)
						os.Exit(1)
					}
					os.Exit(0)
				}
			}

			handler, err := filehandler.NewHandler(cfg.Path, lg)
			if err != nil {
				clg.Printcf(logger.ColorRed, "server error : got error %v on initiating file handler !", err)
				os.Exit(1)
			}

			var tlsCfg *server.ServerTLS = nil
			if cfg.Server.TLS.Cert != "" || cfg.Server.TLS.Key != "" {
				tlsCfg = &server.ServerTLS{Cert: cfg.Server.TLS.Cert, Key: cfg.Server.TLS.Key}
			}
			srv := server.NewServer(cfg.Address, cfg.Path, tlsCfg, um, lg, handler)
			defer srv.Exit()

			w, err := watcher.New()
			if err != nil {
				clg.Printcf(logger.ColorRed, "server error : got error %v on watcher !", err)
				os.Exit(1)
			}
			defer w.Close()

			if err := w.Add(cfg.Path, cfg.Recursive); err != nil {
				clg.Printcf(logger.ColorRed, "server error : got error %v registering path %s !", err, cfg.Path)
				os.Exit(1)
			}

			exit := make(chan struct{})
			defer close(exit)
			go pump(w, cfg, handler, srv, exit)

			err = srv.Run()
			if err != nil {
				clg.Printcf(logger.ColorRed, "server error : got error %v running server !!", err)
				os.Exit(1)
			}
		}
	case pkg.ClientType:
		{
			handler, err := filehandler.NewHandler(cfg.Path, lg)
			if err != nil {
				clg.Printcf(logger.ColorRed, "client error : got error %v on initiating file handler !", err)
				os.Exit(1)
			}

			var tlsCfg *tls.Config
			if cfg.Client.TLS {
				tlsCfg = &tls.Config{}
			}

			cli := client.NewClient(cfg.Address, cfg.Client.Username, cfg.Client.Password, tlsCfg, lg, handler)
			err = cli.Run()
			if err != nil {
				clg.Printcf(logger.ColorRed, "client error : got error %v on connection with server !!", err)
				os.Exit(1)
			}
		}
	default:
		clg.Printcf(logger.ColorRed, "error fswatch : exit !! invalid service type %s !", cfg.ServiceType)
		os.Exit(1)
	}
}

// runWatch is the plain consumer loop: poll and print until
// interrupted.
func runWatch(cfg *pkg.Config, clg *logger.ColorLogger) {
	w, err := watcher.New()
	if err != nil {
		clg.Printcf(logger.ColorRed, "watch error : got error %v on watcher !", err)
		os.Exit(1)
	}
	defer w.Close()

	if err := w.Add(cfg.Path, cfg.Recursive); err != nil {
		clg.Printcf(logger.ColorRed, "watch error : got error %v registering path %s !", err, cfg.Path)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			clg.Printc(logger.ColorGreen, "watch : exit.")
			return
		default:
			e, ok := w.Poll(cfg.PollTimeout())
			if !ok {
				continue
			}
			clg.Eventcf(e.Has(model.Deleted), e.Has(model.Renamed), "watch : %s", e)
		}
	}
}

// pump feeds poll results into the metadata tracker and the notify
// server until exit closes.
func pump(w *watcher.Watcher, cfg *pkg.Config, handler *filehandler.Handler, srv *server.Server, exit chan struct{}) {
	for {
		select {
		case <-exit:
			return
		default:
			e, ok := w.Poll(cfg.PollTimeout())
			if !ok {
				continue
			}
			handler.Apply(e)
			srv.Notify(e)
		}
	}
}
