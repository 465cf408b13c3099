package collector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	a2sHeader        = "\xff\xff\xff\xff"
	a2sInfoRequest   = a2sHeader + "TSource Engine Query\x00"
	a2sPlayerType    = 'U'
	a2sInfoReply     = 'I'
	a2sPlayerReply   = 'D'
	a2sChallenge     = 'A'
	infoTimeout      = 2 * time.Second
	playerTimeout    = 5 * time.Second
	maxDatagram      = 65535
	challengeRetries = 3
)

// ServerInfo is the typed result of an A2S_INFO query
type ServerInfo struct {
	Name        string
	Map         string
	Folder      string
	Game        string
	PlayerCount int
	MaxPlayers  int
	Bots        int
}

// PlayerEntry is one entry from an A2S_PLAYER reply. Names may be empty or
// anonymized depending on server configuration.
type PlayerEntry struct {
	Name     string
	Score    int
	Duration float64 // seconds connected
}

// A2SClient queries Source engine servers via the UDP A2S protocol
type A2SClient struct {
	address string
}

// NewA2SClient creates an A2S client for the given host:port
func NewA2SClient(address string) *A2SClient {
	return &A2SClient{address: address}
}

// Info performs an A2S_INFO query and returns typed server info
func (c *A2SClient) Info() (*ServerInfo, error) {
	payload, err := c.exchange([]byte(a2sInfoRequest), a2sInfoReply, infoTimeout, appendChallenge)
	if err != nil {
		return nil, fmt.Errorf("a2s info query: %w", err)
	}
	return parseInfoReply(payload)
}

// Players performs an A2S_PLAYER query. The response is bounded by a shorter
// deadline than a full poll; a timeout here is a soft failure for the caller.
func (c *A2SClient) Players() ([]PlayerEntry, error) {
	request := buildPlayerRequest(-1)
	payload, err := c.exchange(request, a2sPlayerReply, playerTimeout, replaceChallenge)
	if err != nil {
		return nil, fmt.Errorf("a2s player query: %w", err)
	}
	return parsePlayerReply(payload)
}

// buildPlayerRequest encodes an A2S_PLAYER request with the given challenge
func buildPlayerRequest(challenge int32) []byte {
	buf := make([]byte, 0, 9)
	buf = append(buf, a2sHeader...)
	buf = append(buf, a2sPlayerType)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(challenge))
	return buf
}

// appendChallenge re-issues an INFO request with the challenge token appended
func appendChallenge(request []byte, challenge int32) []byte {
	return binary.LittleEndian.AppendUint32(request, uint32(challenge))
}

// replaceChallenge re-issues a PLAYER request with the challenge substituted
func replaceChallenge(request []byte, challenge int32) []byte {
	return buildPlayerRequest(challenge)
}

// exchange sends a request and reads the reply, handling the A2S challenge
// handshake: servers may answer any query with an 'A' packet carrying a token
// that must be echoed in a retried request.
func (c *A2SClient) exchange(request []byte, wantType byte, timeout time.Duration, retry func([]byte, int32) []byte) ([]byte, error) {
	conn, err := net.DialTimeout("udp", c.address, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.address, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	buf := make([]byte, maxDatagram)
	current := request

	for attempt := 0; attempt < challengeRetries; attempt++ {
		if _, err := conn.Write(current); err != nil {
			return nil, fmt.Errorf("sending request: %w", err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if n < 5 || string(buf[:4]) != a2sHeader {
			return nil, fmt.Errorf("malformed response header")
		}

		switch buf[4] {
		case wantType:
			payload := make([]byte, n-5)
			copy(payload, buf[5:n])
			return payload, nil
		case a2sChallenge:
			if n < 9 {
				return nil, fmt.Errorf("short challenge packet")
			}
			challenge := int32(binary.LittleEndian.Uint32(buf[5:9]))
			current = retry(request, challenge)
		default:
			return nil, fmt.Errorf("unexpected response type 0x%02x", buf[4])
		}
	}

	return nil, fmt.Errorf("challenge loop exceeded %d attempts", challengeRetries)
}

// parseInfoReply decodes an A2S_INFO payload (after the header and type byte)
func parseInfoReply(payload []byte) (*ServerInfo, error) {
	r := bytes.NewReader(payload)

	// Protocol version byte
	if _, err := r.ReadByte(); err != nil {
		return nil, fmt.Errorf("truncated info reply")
	}

	info := &ServerInfo{}
	var err error
	if info.Name, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading server name: %w", err)
	}
	if info.Map, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading map name: %w", err)
	}
	if info.Folder, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}
	if info.Game, err = readCString(r); err != nil {
		return nil, fmt.Errorf("reading game: %w", err)
	}

	// App ID (short), then player counts
	var appID uint16
	if err := binary.Read(r, binary.LittleEndian, &appID); err != nil {
		return nil, fmt.Errorf("reading app id: %w", err)
	}

	counts := make([]byte, 3) // players, max players, bots
	if _, err := io.ReadFull(r, counts); err != nil {
		return nil, fmt.Errorf("reading player counts: %w", err)
	}
	info.PlayerCount = int(counts[0])
	info.MaxPlayers = int(counts[1])
	info.Bots = int(counts[2])

	return info, nil
}

// parsePlayerReply decodes an A2S_PLAYER payload (after the header and type byte)
func parsePlayerReply(payload []byte) ([]PlayerEntry, error) {
	r := bytes.NewReader(payload)

	count, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated player reply")
	}

	players := make([]PlayerEntry, 0, count)
	for i := 0; i < int(count); i++ {
		// Index byte, unused
		if _, err := r.ReadByte(); err != nil {
			break // Tolerate short replies: some servers truncate the list
		}

		var entry PlayerEntry
		if entry.Name, err = readCString(r); err != nil {
			break
		}
		var score int32
		if err := binary.Read(r, binary.LittleEndian, &score); err != nil {
			break
		}
		entry.Score = int(score)
		var duration float32
		if err := binary.Read(r, binary.LittleEndian, &duration); err != nil {
			break
		}
		entry.Duration = float64(duration)

		players = append(players, entry)
	}

	return players, nil
}

// readCString reads a NUL-terminated string
func readCString(r *bytes.Reader) (string, error) {
	var b []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(b), nil
		}
		b = append(b, c)
	}
}
