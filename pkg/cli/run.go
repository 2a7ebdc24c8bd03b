// Cellboard
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Cellboard.
//
// Cellboard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellboard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellboard.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/cellboard/pkg/api"
	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/service"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Run starts the service and, when enabled, the API server, and blocks
// until ctx is cancelled or the API server fails.
func Run(ctx context.Context, cfg *config.Instance, opts ...service.Option) error {
	svc, err := service.Start(cfg, opts...)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.APIEnabled() {
		srv := api.NewServer(api.Options{
			Listen:         cfg.APIListen(),
			AllowedOrigins: cfg.AllowedOrigins(),
			RateLimit:      cfg.RateLimit(),
			Metrics:        svc.Metrics().Handler(),
		}, svc, svc.Broker())
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	} else {
		log.Info().Msg("api server disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		return svc.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service exited with error")
		return err
	}
	return nil
}
