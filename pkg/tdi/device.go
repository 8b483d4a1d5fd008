// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

package tdi

import (
	"context"
	"fmt"

	"github.com/antoninbas/p4runtime-go-client/pkg/client"
	p4configv1 "github.com/p4lang/p4runtime/go/p4/config/v1"
	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// electionID is never used for arbitration, reading the pipeline does not
// need a primary client.
var electionID = &p4v1.Uint128{High: 0, Low: 1}

// FetchP4Info reads the P4Info of the pipeline installed on device deviceID of
// the P4Runtime server at addr.
func FetchP4Info(ctx context.Context, addr string, deviceID uint64) (*p4configv1.P4Info, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("p4runtime %s: %w", addr, err)
	}
	defer conn.Close()

	c := p4v1.NewP4RuntimeClient(conn)
	resp, err := c.Capabilities(ctx, &p4v1.CapabilitiesRequest{})
	if err != nil {
		return nil, fmt.Errorf("p4runtime %s: capabilities: %w", addr, err)
	}
	lg := log.WithFields(log.Fields{"address": addr, "device": deviceID})
	lg.Infof("P4Runtime server version is %s", resp.GetP4RuntimeApiVersion())

	p4rtc := client.NewClient(c, deviceID, electionID)
	pipe, err := p4rtc.GetFwdPipe(ctx, client.GetFwdPipeP4InfoAndCookie)
	if err != nil {
		return nil, fmt.Errorf("p4runtime %s: %w", addr, err)
	}
	if pipe.P4Info == nil {
		return nil, fmt.Errorf("p4runtime %s: device %d has no pipeline", addr, deviceID)
	}
	lg.WithField("cookie", pipe.Cookie).Debug("pipeline config read")
	return pipe.P4Info, nil
}
