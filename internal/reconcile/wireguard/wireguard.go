// Package wireguard implements the WireGuard reconciler from spec.md
// §4.4: compare the base interface (private key, listen port, fwmark,
// peers) against current state; peers keyed by public key.
//
// Grounded on the teacher's internal/tunnel/device.go, which configures a
// single wireguard-go device via UAPI IpcSet calls; adapted here from one
// agent-managed tunnel into an N-link diff-and-apply reconciler driven by
// golang.zx2c4.com/wireguard/wgctrl for both read-back (Client.Device) and
// apply (Client.ConfigureDevice).
package wireguard

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/liske/ifstated/internal/model"
	"github.com/liske/ifstated/internal/report"
	"github.com/liske/ifstated/internal/xcpt"
)

type Options struct {
	DryRun bool
}

// Reconcile diffs desired against the live WireGuard device state of
// ifname (via wgctrl, which itself talks to the kernel module's generic
// netlink interface) and applies the difference via wgctrl's
// ConfigureDevice (§4.4 WireGuard).
func Reconcile(client *wgctrl.Client, ifname string, desired *model.WireGuardIfaceSettings, opts Options, rep *report.Reporter, coll *xcpt.Collector) error {
	live, err := client.Device(ifname)
	if err != nil {
		return fmt.Errorf("reading wireguard device %s: %w", ifname, err)
	}

	cfg := wgtypes.Config{ReplacePeers: false}

	if desired.ListenPort != 0 && desired.ListenPort != live.ListenPort {
		rep.Line(report.Change, "wireguard", "option", "listen_port", "value", desired.ListenPort)
		port := desired.ListenPort
		cfg.ListenPort = &port
	} else {
		rep.Line(report.OK, "wireguard", "option", "listen_port")
	}

	if desired.FwMark != 0 && desired.FwMark != live.FirewallMark {
		rep.Line(report.Change, "wireguard", "option", "fwmark", "value", desired.FwMark)
		fw := desired.FwMark
		cfg.FirewallMark = &fw
	}

	if desired.PrivateKey != "" {
		key, err := wgtypes.ParseKey(desired.PrivateKey)
		if err != nil {
			coll.Add("wg_parse_key", err, map[string]any{"ifname": ifname})
			rep.Line(report.Warn, "wireguard", "option", "private_key", "error", err.Error())
		} else if key.PublicKey() != live.PublicKey {
			rep.Line(report.Change, "wireguard", "option", "private_key")
			cfg.PrivateKey = &key
		}
	}

	liveByKey := make(map[string]wgtypes.Peer, len(live.Peers))
	for _, p := range live.Peers {
		liveByKey[p.PublicKey.String()] = p
	}

	wantedKeys := make([]string, 0, len(desired.Peers))
	for _, p := range desired.Peers {
		wantedKeys = append(wantedKeys, p.PublicKey)
	}
	sort.Strings(wantedKeys)

	for _, want := range desired.Peers {
		peerCfg, err := diffPeer(want, liveByKey[want.PublicKey])
		if err != nil {
			coll.Add("wg_peer_config", err, map[string]any{"peer": want.PublicKey})
			rep.Line(report.Warn, "wireguard_peer", "peer", want.PublicKey, "error", err.Error())
			continue
		}
		if peerCfg == nil {
			rep.Line(report.OK, "wireguard_peer", "peer", want.PublicKey)
			continue
		}
		if _, existed := liveByKey[want.PublicKey]; existed {
			rep.Line(report.Change, "wireguard_peer", "peer", want.PublicKey)
		} else {
			rep.Line(report.Add, "wireguard_peer", "peer", want.PublicKey)
		}
		cfg.Peers = append(cfg.Peers, *peerCfg)
	}

	for key, p := range liveByKey {
		if containsPeer(wantedKeys, key) {
			continue
		}
		rep.Line(report.Del, "wireguard_peer", "peer", key)
		cfg.Peers = append(cfg.Peers, wgtypes.PeerConfig{PublicKey: p.PublicKey, Remove: true})
	}

	if opts.DryRun || (cfg.PrivateKey == nil && cfg.ListenPort == nil && cfg.FirewallMark == nil && len(cfg.Peers) == 0) {
		return nil
	}

	if err := client.ConfigureDevice(ifname, cfg); err != nil {
		coll.Add("wg_configure", err, map[string]any{"ifname": ifname})
		rep.Line(report.Warn, "wireguard", "ifname", ifname, "error", err.Error())
	}
	return nil
}

func containsPeer(keys []string, key string) bool {
	i := sort.SearchStrings(keys, key)
	return i < len(keys) && keys[i] == key
}

func diffPeer(want model.WireGuardPeer, live wgtypes.Peer) (*wgtypes.PeerConfig, error) {
	pub, err := wgtypes.ParseKey(want.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("parsing peer public key: %w", err)
	}

	allowedIPs, err := parseAllowedIPs(want.AllowedIPs)
	if err != nil {
		return nil, err
	}

	changed := live.PublicKey != pub ||
		live.Endpoint == nil && want.Endpoint != "" ||
		(live.Endpoint != nil && live.Endpoint.String() != want.Endpoint) ||
		live.PersistentKeepaliveInterval.Seconds() != float64(want.PersistentKeepalive) ||
		!sameAllowedIPs(live.AllowedIPs, allowedIPs)

	if !changed {
		return nil, nil
	}

	cfg := &wgtypes.PeerConfig{
		PublicKey:         pub,
		ReplaceAllowedIPs: true,
		AllowedIPs:        allowedIPs,
	}
	if want.PresharedKey != "" {
		psk, err := wgtypes.ParseKey(want.PresharedKey)
		if err != nil {
			return nil, fmt.Errorf("parsing preshared key: %w", err)
		}
		cfg.PresharedKey = &psk
	}
	return cfg, nil
}

func parseAllowedIPs(cidrs []string) ([]net.IPNet, error) {
	out := make([]net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("parsing allowed-ip %s: %w", c, err)
		}
		out = append(out, *n)
	}
	return out, nil
}

func sameAllowedIPs(a, b []net.IPNet) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = a[i].String()
	}
	for i := range b {
		bs[i] = b[i].String()
	}
	sort.Strings(as)
	sort.Strings(bs)
	return strings.Join(as, ",") == strings.Join(bs, ",")
}
