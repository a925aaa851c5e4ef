// Package ping provides single-host reachability probes and the recurring
// background sweep that keeps device statuses current.
package ping

import (
	"context"
	"log"
	"math"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"device-inventory-backend/internal/model"
)

// Result is the outcome of one reachability probe. LatencyMS is only set
// for online results. Timestamp records when the probe completed, whether
// it succeeded or not.
type Result struct {
	Status    string    `json:"status"`
	LatencyMS *float64  `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Prober checks whether a single IP address answers an ICMP echo.
type Prober interface {
	Probe(ctx context.Context, ip string, timeout time.Duration) Result
}

// ICMPProber sends one unprivileged ICMP echo per probe. Transport errors,
// permission errors and timeouts all map to an offline result; a probe
// never fails with an error.
type ICMPProber struct{}

var _ Prober = (*ICMPProber)(nil)

const maxReplySize = 1500

// effectiveTimeout rounds the timeout up to whole seconds, minimum one.
func effectiveTimeout(timeout time.Duration) time.Duration {
	secs := int64(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func offline() Result {
	return Result{Status: model.StatusOffline, Timestamp: time.Now().UTC()}
}

// Probe sends a single echo request and waits for the matching reply.
func (p *ICMPProber) Probe(ctx context.Context, ip string, timeout time.Duration) Result {
	dst := net.ParseIP(ip)
	if dst == nil || dst.To4() == nil {
		return offline()
	}

	// Datagram-oriented ICMP needs no raw-socket privileges.
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		log.Printf("Ping error for %s: %v", ip, err)
		return offline()
	}
	defer conn.Close()

	ident := os.Getpid() & 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   ident,
			Seq:  1,
			Data: []byte("netinv reachability probe"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		log.Printf("Ping error for %s: %v", ip, err)
		return offline()
	}

	start := time.Now()
	deadline := start.Add(effectiveTimeout(timeout))
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		log.Printf("Ping error for %s: %v", ip, err)
		return offline()
	}

	if _, err := conn.WriteTo(wb, &net.UDPAddr{IP: dst}); err != nil {
		log.Printf("Ping error for %s: %v", ip, err)
		return offline()
	}

	rb := make([]byte, maxReplySize)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			// Timeout or transport failure: the host is unreachable.
			return offline()
		}

		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if reply.Type != ipv4.ICMPTypeEchoReply || !ok || echo.Seq != 1 {
			// Reply belongs to someone else; keep reading until the deadline.
			continue
		}
		if udp, ok := peer.(*net.UDPAddr); ok && !udp.IP.Equal(dst) {
			continue
		}

		// Microsecond resolution keeps three decimal places of milliseconds.
		rtt := time.Since(start)
		latency := float64(rtt.Microseconds()) / 1000.0
		return Result{
			Status:    model.StatusOnline,
			LatencyMS: &latency,
			Timestamp: time.Now().UTC(),
		}
	}
}
