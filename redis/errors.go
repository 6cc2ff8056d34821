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

package redis

import "errors"

var (
	// ErrWrongType is returned when a command targets a key whose stored
	// datatype tag does not match the command's family.
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

	// ErrNotInteger is returned by the INCR/DECR/HINCRBY family when the
	// current value does not parse as a signed 64-bit decimal, or the
	// operation would overflow.
	ErrNotInteger = errors.New("value is not an integer or out of range")

	// ErrSyntax covers malformed command arguments: a bad range or an
	// unrecognized flag combination.
	ErrSyntax = errors.New("syntax error")

	// ErrNotFloat is returned by ZADD/ZINCRBY/ZRANGEBYSCORE when a score
	// argument does not parse as a double.
	ErrNotFloat = errors.New("value is not a valid float")
)
