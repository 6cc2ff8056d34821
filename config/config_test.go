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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsWhenNoPath(t *testing.T) {
	cfg, err := Load("")
	assert.Nil(t, err)
	assert.Equal(t, Default().Server.Address, cfg.Server.Address)
	assert.Equal(t, Default().Sweeper.BatchSize, cfg.Sweeper.BatchSize)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisdb.yaml")
	content := "server:\n  address: \"0.0.0.0:7000\"\n  worker_pool_size: 16\n  scan_chunk_size: 64\n"
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.Nil(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Address)
	assert.Equal(t, 16, cfg.Server.WorkerPoolSize)
}

func TestLoad_UnknownKeyIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisdb.yaml")
	content := "server:\n  bogus_field: 1\n"
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.NotNil(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REDISDB_SERVER_ADDRESS", "0.0.0.0:9999")
	cfg, err := Load("")
	assert.Nil(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Server.Address)
}

func TestLoad_InvalidIndexType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisdb.yaml")
	content := "engine:\n  index_type: \"unknown\"\n"
	assert.Nil(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.NotNil(t, err)
}
