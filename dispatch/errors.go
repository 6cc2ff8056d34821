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

package dispatch

import (
	"errors"
	"fmt"

	"github.com/redisdb/redisdb"
	"github.com/redisdb/redisdb/redis"
	"github.com/redisdb/redisdb/txn"
)

// respError marks an error a handler already formatted as a complete RESP
// error string (e.g. wrongArgs' "ERR wrong number of arguments..."), so
// translateError passes it through unchanged instead of prefixing it again.
type respError string

func (e respError) Error() string { return string(e) }

// translateError rewrites an error surfaced by redis/txn/codec into the RESP
// error string a client expects. This is the only place that knowledge
// lives; redis and txn stay ignorant of the wire protocol.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(ErrUnknownCommand); ok {
		return err
	}
	if _, ok := err.(respError); ok {
		return err
	}

	switch {
	case errors.Is(err, redis.ErrWrongType):
		return err
	case errors.Is(err, redis.ErrNotInteger), errors.Is(err, redis.ErrNotFloat), errors.Is(err, redis.ErrSyntax):
		return fmt.Errorf("ERR %s", err)
	case errors.Is(err, txn.ErrTransientConflict):
		return fmt.Errorf("TRYAGAIN %s", err)
	case errors.Is(err, redisdb.ErrKeyNotFound):
		return errors.New("ERR no such key")
	default:
		return fmt.Errorf("ERR %s", err)
	}
}
