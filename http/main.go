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

// Command redisdb-admin is a read-only diagnostics surface for an already
// running redisdbd's data directory: it opens the same engine files and
// answers HTTP queries through the redis command layer, so it respects the
// M/D/S/X physical namespace instead of poking raw engine keys the way a
// direct db.Put/db.Get would.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/redis"
)

var rds *redis.RedisDataStructure

func main() {
	dir := flag.String("dir", "", "engine data directory (must match a running redisdbd's engine.data_directory)")
	addr := flag.String("address", "localhost:8989", "address to listen on")
	flag.Parse()

	if *dir == "" {
		log.Fatal("missing required -dir flag")
	}

	options := redisdb.DefaultOptions
	options.DirectoryPath = *dir

	var err error
	rds, err = redis.NewRedisDataStructure(options)
	if err != nil {
		log.Fatalf("opening engine at %s: %v", *dir, err)
	}
	defer rds.Close()

	http.HandleFunc("/redisdb/get", handleGet)
	http.HandleFunc("/redisdb/type", handleType)
	http.HandleFunc("/redisdb/ttl", handleTTL)
	http.HandleFunc("/redisdb/keys", handleKeys)
	http.HandleFunc("/redisdb/stat", handleStat)

	log.Printf("redisdb-admin listening on %s, serving %s\n", *addr, *dir)
	if err := http.ListenAndServe(*addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	os.Exit(0)
}

// handleGet supports only the string datatype: GET /redisdb/get?key=name1.
// Hashes, lists, sets and sorted sets have no single "value" to return over
// this surface; use the RESP listener for those.
func handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	value, exists, err := rds.Get([]byte(key))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"key": key, "exists": exists, "value": string(value)})
}

func handleType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	dt, err := rds.Type([]byte(key))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"key": key, "type": dt})
}

func handleTTL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	ttl, err := rds.TTL([]byte(key))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"key": key, "ttl_seconds": ttl})
}

// handleKeys supports GET /redisdb/keys?pattern=user:* (default "*").
func handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	keys, err := rds.Keys(r.Context(), pattern)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	writeJSON(w, out)
}

func handleStat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, rds.Facade().Underlying().Stat())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
