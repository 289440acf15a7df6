package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program runs serve under the OS service manager.
type program struct {
	configPath string
	cancel     context.CancelFunc
	exit       chan struct{}
}

func (p *program) Start(s service.Service) error {
	a, err := newApp(p.configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.exit = make(chan struct{})
	go func() {
		defer close(p.exit)
		defer a.Close()
		if err := ignoreCanceled(a.serve(ctx)); err != nil {
			slog.Error("Service stopped with error", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.exit
	}
	return nil
}

func serviceConfig(configPath string) *service.Config {
	return &service.Config{
		Name:             "mailwatch",
		DisplayName:      "Mailwatch",
		Description:      "Mails new files dropped into a watched directory.",
		Arguments:        []string{"service", "run", "--config", configPath},
		WorkingDirectory: filepath.Dir(configPath),
	}
}

func serviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "service install|uninstall|start|stop|run",
		Short:     "Manage mailwatch as an OS service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := filepath.Abs(cfgFile)
			if err != nil {
				return err
			}
			prg := &program{configPath: configPath}
			s, err := service.New(prg, serviceConfig(configPath))
			if err != nil {
				return err
			}

			switch args[0] {
			case "run":
				return s.Run()
			case "install", "uninstall", "start", "stop":
				if err := service.Control(s, args[0]); err != nil {
					return fmt.Errorf("service %s failed: %w", args[0], err)
				}
				fmt.Printf("Service %s: ok\n", args[0])
				return nil
			default:
				return fmt.Errorf("unknown action %q, use install, uninstall, start, stop or run", args[0])
			}
		},
	}
}
