// Command kvstore-cli is a minimal line client for manually poking a
// running kvstored: it reads whitespace-separated commands from stdin,
// sends each as a command frame, and prints the decoded reply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mickamy/kvstored/resp"
)

func main() {
	fs := flag.NewFlagSet("kvstore-cli", flag.ExitOnError)
	addr := fs.String("addr", "localhost:6380", "kvstored address to connect to")
	_ = fs.Parse(os.Args[1:])

	if err := run(*addr); err != nil {
		log.Fatal(err)
	}
}

func run(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	reader := resp.NewReader(conn)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Fprintf(os.Stderr, "connected to %s\n", addr)
	for {
		fmt.Fprintf(os.Stderr, "%s> ", addr)
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args := strings.Fields(line)

		if err := resp.WriteCommandFrame(conn, args...); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		reply, err := readReply(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read reply: %w", err)
		}
		fmt.Println(reply)
	}
}

// readReply reads one reply line and, for bulk-string and array replies,
// the payload that follows. Simple strings, errors and integers are
// returned as their raw line; bulk strings are quoted, null replies render
// as "(nil)", and array elements are joined inside brackets.
func readReply(r *resp.Reader) (string, error) {
	line, err := r.ReadLine()
	if err != nil {
		return "", err
	}
	if len(line) == 0 {
		return "", nil
	}

	switch line[0] {
	case '+', '-', ':':
		return line, nil

	case '$':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return "", fmt.Errorf("bad bulk length %q", line[1:])
		}
		if n < 0 {
			return "(nil)", nil
		}
		body, err := r.ReadBulkPayload(n)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%q", body), nil

	case '*':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return "", fmt.Errorf("bad array length %q", line[1:])
		}
		if n < 0 {
			return "(nil)", nil
		}
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			elem, err := readReply(r)
			if err != nil {
				return "", err
			}
			parts = append(parts, elem)
		}
		return "[" + strings.Join(parts, " ") + "]", nil

	default:
		return line, nil
	}
}
