package sfuworker

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// localCertificateFingerprints holds the fingerprint of a self-signed
// certificate generated once per process. It is announced in every
// WebRtcTransport's DtlsParameters; no DTLS handshake is performed with it.
var localCertificateFingerprints = generateLocalCertificateFingerprints()

func generateLocalCertificateFingerprints() []DtlsFingerprint {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "mediasoup-go"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil
	}

	sum := sha256.Sum256(der)

	return []DtlsFingerprint{{Algorithm: "sha-256", Value: formatFingerprint(sum[:])}}
}

func formatFingerprint(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// fingerprintForDtlsParameters stands in for the PEM-encoded remote
// certificate a real DTLS handshake would yield; it derives a stable
// placeholder from what the endpoint announced.
func fingerprintForDtlsParameters(params DtlsParameters) string {
	if len(params.Fingerprints) == 0 {
		return ""
	}
	return params.Fingerprints[0].Value
}

func randomIceCredential(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return newUuid()
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n]
}

func generateIceParameters(iceLite bool) IceParameters {
	return IceParameters{
		UsernameFragment: randomIceCredential(16),
		Password:         randomIceCredential(22),
		IceLite:          iceLite,
	}
}

// generateSrtpParameters mints a random SRTP master key/salt for a Plain
// or Pipe transport with SRTP enabled.
func generateSrtpParameters(suite SrtpCryptoSuite) SrtpParameters {
	if len(suite) == 0 {
		suite = AES_CM_128_HMAC_SHA1_80
	}

	keyLen := 30
	if suite == AES_CM_128_HMAC_SHA1_32 {
		keyLen = 30
	}

	buf := make([]byte, keyLen)
	rand.Read(buf)

	return SrtpParameters{
		CryptoSuite: suite,
		KeyBase64:   base64.StdEncoding.EncodeToString(buf),
	}
}

// generateSctpParameters builds the local SCTP association parameters
// announced by a transport with SCTP enabled. Port is always 5000, the
// value mediasoup's SCTP association listens on.
func generateSctpParameters(numStreams NumSctpStreams, maxMessageSize int) SctpParameters {
	return SctpParameters{
		Port:           5000,
		OS:             numStreams.OS,
		MIS:            numStreams.MIS,
		MaxMessageSize: maxMessageSize,
	}
}

// generateTransportTuple fabricates the local half of a Plain/Pipe
// transport's network tuple: there is no real socket bound behind this
// in-process transport, so the port is a stand-in rather than a kernel
// allocation.
func generateTransportTuple(listenIp TransportListenIp, protocol TransportProtocol) TransportTuple {
	ip := listenIp.AnnouncedIp
	if len(ip) == 0 {
		ip = listenIp.Ip
	}
	return TransportTuple{
		LocalIp:   ip,
		LocalPort: uint16(generateRandomNumber()%16384 + 40000),
		Protocol:  string(protocol),
	}
}

// generateIceCandidates builds the ICE Lite host candidates this
// transport announces for the given listen IPs, one UDP and/or TCP
// candidate per listen IP in order of preference.
func generateIceCandidates(listenIps []TransportListenIp, enableUdp, enableTcp, preferUdp, preferTcp bool) []IceCandidate {
	var candidates []IceCandidate

	addCandidate := func(listenIp TransportListenIp, protocol TransportProtocol, priority uint32) {
		ip := listenIp.AnnouncedIp
		if len(ip) == 0 {
			ip = listenIp.Ip
		}
		candidate := IceCandidate{
			Foundation: "udpcandidate",
			Priority:   priority,
			Ip:         ip,
			Protocol:   protocol,
			Port:       uint16(generateRandomNumber()%16384 + 40000),
			Type:       "host",
		}
		if protocol == TransportProtocol_Tcp {
			candidate.Foundation = "tcpcandidate"
			candidate.TcpType = "passive"
		}
		candidates = append(candidates, candidate)
	}

	for i, listenIp := range listenIps {
		basePriority := uint32(len(listenIps)-i) * 10
		if enableUdp {
			priority := basePriority*2 + 1
			if preferUdp {
				priority += 1000
			}
			addCandidate(listenIp, TransportProtocol_Udp, priority)
		}
		if enableTcp {
			priority := basePriority * 2
			if preferTcp {
				priority += 1000
			}
			addCandidate(listenIp, TransportProtocol_Tcp, priority)
		}
	}

	return candidates
}
