/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command redisdb-cli is a minimal interactive client for redisdbd's RESP
// listener. There is no RESP client library in the dependency set this
// repository draws on, so this speaks the protocol directly over net.Conn:
// requests are encoded as RESP arrays of bulk strings, replies are decoded
// by their leading type byte.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var address string

func main() {
	root := &cobra.Command{
		Use:   "redisdb-cli",
		Short: "Interactive client for a redisdbd RESP listener",
		RunE:  run,
	}
	root.Flags().StringVarP(&address, "address", "a", "127.0.0.1:6380", "address of the redisdbd RESP listener")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("redisdb-cli connected to %s\n", address)
	for {
		fmt.Printf("%s> ", address)
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if _, err := conn.Write(encodeRequest(fields)); err != nil {
			return fmt.Errorf("writing request: %w", err)
		}

		reply, err := readReply(reader)
		if err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		printReply(reply)
	}
}

// encodeRequest renders fields as a RESP array of bulk strings, the request
// shape every RESP server accepts regardless of command.
func encodeRequest(fields []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\r\n", len(fields))
	for _, f := range fields {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(f), f)
	}
	return []byte(b.String())
}

// readReply decodes one RESP reply: simple string (+), error (-), integer
// (:), bulk string ($), or array (*) of any of the above.
func readReply(r *bufio.Reader) (interface{}, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("empty reply line")
	}

	switch line[0] {
	case '+':
		return line[1:], nil
	case '-':
		return nil, fmt.Errorf("%s", line[1:])
	case ':':
		return strconv.ParseInt(line[1:], 10, 64)
	case '$':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, nil
		}
		buf := make([]byte, n+2)
		if _, err := readFull(r, buf); err != nil {
			return nil, err
		}
		return string(buf[:n]), nil
	case '*':
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, nil
		}
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			item, err := readReply(r)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unrecognized reply type %q", line[0])
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func printReply(reply interface{}) {
	switch v := reply.(type) {
	case nil:
		fmt.Println("(nil)")
	case []interface{}:
		if len(v) == 0 {
			fmt.Println("(empty array)")
			return
		}
		for i, item := range v {
			fmt.Printf("%d) %v\n", i+1, item)
		}
	default:
		fmt.Printf("%v\n", v)
	}
}
