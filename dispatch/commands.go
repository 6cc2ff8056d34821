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
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redisdb/redisdb/redis"
)

func wrongArgs(cmd string) error {
	return respError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmd))
}

func errNotInteger() error { return redis.ErrNotInteger }

func errNotFloat() error { return redis.ErrNotFloat }

func errSyntax() error { return redis.ErrSyntax }

func parseInt64(s []byte) (int64, error) {
	return strconv.ParseInt(string(s), 10, 64)
}

func parseFloat64(s []byte) (float64, error) {
	return strconv.ParseFloat(string(s), 64)
}

// parseScoreBound parses one ZRANGEBYSCORE/ZREMRANGEBYSCORE endpoint: a
// plain float, a "(" prefixed exclusive float, or the +inf/-inf literals.
func parseScoreBound(raw []byte) (redis.ScoreBound, error) {
	s := string(raw)
	switch strings.ToLower(s) {
	case "+inf":
		return redis.ScoreBound{Value: math.Inf(1)}, nil
	case "-inf":
		return redis.ScoreBound{Value: math.Inf(-1)}, nil
	}

	exclusive := strings.HasPrefix(s, "(")
	if exclusive {
		s = s[1:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return redis.ScoreBound{}, errNotFloat()
	}
	return redis.ScoreBound{Value: v, Exclusive: exclusive}, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// rankedReply flattens one RankedMember into the alternating member/score
// pair RESP clients expect from ZPOPMIN/ZPOPMAX and the ZRANGE family;
// redisdb always returns scores, matching the common client expectation
// rather than gating it behind a WITHSCORES flag.
func rankedReply(member []byte, score float64) []interface{} {
	return []interface{}{member, strconv.FormatFloat(score, 'f', -1, 64)}
}

// rankedSliceReply flattens a []redis.RankedMember into the same
// alternating member/score array rankedReply produces for a single member.
func rankedSliceReply(members []redis.RankedMember, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(members)*2)
	for _, m := range members {
		out = append(out, m.Member, strconv.FormatFloat(m.Score, 'f', -1, 64))
	}
	return out, nil
}

// buildTable wires every supported command name to a Handler closing over d.
func buildTable(d *Dispatcher) map[string]Handler {
	t := make(map[string]Handler)

	// ---- strings ----
	t["get"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("get")
		}
		v, exists, err := d.rds.Get(args[0])
		if err != nil || !exists {
			return nil, err
		}
		return v, nil
	}
	t["set"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 2 {
			return nil, wrongArgs("set")
		}
		opts, err := parseSetOptions(args[2:])
		if err != nil {
			return nil, err
		}
		wrote, err := d.rds.Set(args[0], args[1], opts)
		if err != nil {
			return nil, err
		}
		if !wrote {
			return nil, nil
		}
		return "OK", nil
	}
	t["mget"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("mget")
		}
		values, err := d.rds.MGet(args)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	}
	t["mset"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 || len(args)%2 != 0 {
			return nil, wrongArgs("mset")
		}
		if err := d.rds.MSet(args); err != nil {
			return nil, err
		}
		return "OK", nil
	}
	t["strlen"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("strlen")
		}
		n, err := d.rds.Strlen(args[0])
		return int64(n), err
	}
	t["append"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("append")
		}
		n, err := d.rds.Append(args[0], args[1])
		return int64(n), err
	}
	t["getset"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("getset")
		}
		return d.rds.GetSet(args[0], args[1])
	}
	t["incr"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("incr")
		}
		return d.rds.Incr(args[0])
	}
	t["decr"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("decr")
		}
		return d.rds.Decr(args[0])
	}
	t["incrby"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("incrby")
		}
		delta, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		return d.rds.IncrBy(args[0], delta)
	}
	t["decrby"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("decrby")
		}
		delta, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		return d.rds.DecrBy(args[0], delta)
	}

	// ---- hashes ----
	t["hset"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("hset")
		}
		isNew, err := d.rds.HSet(args[0], args[1], args[2])
		return boolInt(isNew), err
	}
	t["hsetnx"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("hsetnx")
		}
		wrote, err := d.rds.HSetNX(args[0], args[1], args[2])
		return boolInt(wrote), err
	}
	t["hget"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("hget")
		}
		v, exists, err := d.rds.HGet(args[0], args[1])
		if err != nil || !exists {
			return nil, err
		}
		return v, nil
	}
	t["hexists"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("hexists")
		}
		exists, err := d.rds.HExists(args[0], args[1])
		return boolInt(exists), err
	}
	t["hdel"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("hdel")
		}
		existed, err := d.rds.HDel(args[0], args[1])
		return boolInt(existed), err
	}
	t["hlen"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("hlen")
		}
		n, err := d.rds.HLen(args[0])
		return int64(n), err
	}
	t["hincrby"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("hincrby")
		}
		delta, err := parseInt64(args[2])
		if err != nil {
			return nil, errNotInteger()
		}
		return d.rds.HIncrBy(args[0], args[1], delta)
	}
	t["hgetall"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("hgetall")
		}
		pairs, err := d.rds.HGetAll(args[0])
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, len(pairs)*2)
		for _, p := range pairs {
			out = append(out, p[0], p[1])
		}
		return out, nil
	}
	t["hkeys"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("hkeys")
		}
		return byteSliceReply(d.rds.HKeys(args[0]))
	}
	t["hvals"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("hvals")
		}
		return byteSliceReply(d.rds.HVals(args[0]))
	}
	t["hmget"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 2 {
			return nil, wrongArgs("hmget")
		}
		return byteSliceReply(d.rds.HMGet(args[0], args[1:]))
	}

	// ---- lists ----
	t["lpush"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("lpush")
		}
		n, err := d.rds.LPush(args[0], args[1])
		return int64(n), err
	}
	t["rpush"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("rpush")
		}
		n, err := d.rds.RPush(args[0], args[1])
		return int64(n), err
	}
	t["lpop"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("lpop")
		}
		return d.rds.LPop(args[0])
	}
	t["rpop"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("rpop")
		}
		return d.rds.RPop(args[0])
	}
	t["llen"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("llen")
		}
		n, err := d.rds.LLen(args[0])
		return int64(n), err
	}
	t["lindex"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("lindex")
		}
		i, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		v, exists, err := d.rds.LIndex(args[0], i)
		if err != nil || !exists {
			return nil, err
		}
		return v, nil
	}
	t["lrange"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("lrange")
		}
		start, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		stop, err := parseInt64(args[2])
		if err != nil {
			return nil, errNotInteger()
		}
		return byteSliceReply(d.rds.LRange(args[0], start, stop))
	}
	t["lset"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("lset")
		}
		i, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		if err := d.rds.LSet(args[0], i, args[2]); err != nil {
			return nil, err
		}
		return "OK", nil
	}
	t["ltrim"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("ltrim")
		}
		start, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		stop, err := parseInt64(args[2])
		if err != nil {
			return nil, errNotInteger()
		}
		if err := d.rds.LTrim(args[0], start, stop); err != nil {
			return nil, err
		}
		return "OK", nil
	}
	t["linsert"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 4 {
			return nil, wrongArgs("linsert")
		}
		before, err := parseBeforeAfter(args[1])
		if err != nil {
			return nil, err
		}
		n, err := d.rds.LInsert(args[0], before, args[2], args[3])
		return int64(n), err
	}
	t["lrem"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("lrem")
		}
		count, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		n, err := d.rds.LRem(args[0], count, args[2])
		return int64(n), err
	}

	// ---- sets ----
	t["sadd"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 2 {
			return nil, wrongArgs("sadd")
		}
		n, err := d.rds.SAdd(args[0], args[1:])
		return int64(n), err
	}
	t["srem"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 2 {
			return nil, wrongArgs("srem")
		}
		n, err := d.rds.SRem(args[0], args[1:])
		return int64(n), err
	}
	t["sismember"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("sismember")
		}
		present, err := d.rds.SIsMember(args[0], args[1])
		return boolInt(present), err
	}
	t["smismember"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 2 {
			return nil, wrongArgs("smismember")
		}
		flags, err := d.rds.SMIsMember(args[0], args[1:])
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(flags))
		for i, f := range flags {
			out[i] = boolInt(f)
		}
		return out, nil
	}
	t["scard"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("scard")
		}
		n, err := d.rds.SCard(args[0])
		return int64(n), err
	}
	t["smembers"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("smembers")
		}
		return byteSliceReply(d.rds.SMembers(ctx, args[0]))
	}
	t["spop"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, wrongArgs("spop")
		}
		count := 1
		if len(args) == 2 {
			n, err := parseInt64(args[1])
			if err != nil {
				return nil, errNotInteger()
			}
			count = int(n)
		}
		return byteSliceReply(d.rds.SPop(ctx, args[0], count))
	}
	t["srandmember"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, wrongArgs("srandmember")
		}
		count := 1
		if len(args) == 2 {
			n, err := parseInt64(args[1])
			if err != nil {
				return nil, errNotInteger()
			}
			count = int(n)
		}
		return byteSliceReply(d.rds.SRandMember(ctx, args[0], count))
	}
	t["sunion"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("sunion")
		}
		return byteSliceReply(d.rds.SUnion(ctx, args))
	}
	t["sinter"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("sinter")
		}
		return byteSliceReply(d.rds.SInter(ctx, args))
	}
	t["sdiff"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("sdiff")
		}
		return byteSliceReply(d.rds.SDiff(ctx, args))
	}

	// ---- sorted sets ----
	t["zadd"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zadd")
		}
		score, err := parseFloat64(args[1])
		if err != nil {
			return nil, errNotFloat()
		}
		added, err := d.rds.ZAdd(args[0], score, args[2])
		return boolInt(added), err
	}
	t["zscore"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("zscore")
		}
		score, exists, err := d.rds.ZScore(args[0], args[1])
		if err != nil || !exists {
			return nil, err
		}
		return strconv.FormatFloat(score, 'f', -1, 64), nil
	}
	t["zcard"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("zcard")
		}
		n, err := d.rds.ZCard(args[0])
		return int64(n), err
	}
	t["zrem"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("zrem")
		}
		removed, err := d.rds.ZRem(args[0], args[1])
		return boolInt(removed), err
	}
	t["zincrby"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zincrby")
		}
		delta, err := parseFloat64(args[1])
		if err != nil {
			return nil, errNotFloat()
		}
		score, err := d.rds.ZIncrBy(args[0], delta, args[2])
		if err != nil {
			return nil, err
		}
		return strconv.FormatFloat(score, 'f', -1, 64), nil
	}
	t["zrange"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zrange")
		}
		start, stop, err := parseStartStop(args[1], args[2])
		if err != nil {
			return nil, err
		}
		members, err := d.rds.ZRange(ctx, args[0], start, stop)
		return rankedSliceReply(members, err)
	}
	t["zrevrange"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zrevrange")
		}
		start, stop, err := parseStartStop(args[1], args[2])
		if err != nil {
			return nil, err
		}
		members, err := d.rds.ZRevRange(ctx, args[0], start, stop)
		return rankedSliceReply(members, err)
	}
	t["zrangebyscore"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 && len(args) != 5 {
			return nil, wrongArgs("zrangebyscore")
		}
		min, err := parseScoreBound(args[1])
		if err != nil {
			return nil, err
		}
		max, err := parseScoreBound(args[2])
		if err != nil {
			return nil, err
		}
		offset, count := int64(0), int64(-1)
		if len(args) == 5 {
			offset, err = parseInt64(args[3])
			if err != nil {
				return nil, errNotInteger()
			}
			count, err = parseInt64(args[4])
			if err != nil {
				return nil, errNotInteger()
			}
		}
		members, err := d.rds.ZRangeByScore(ctx, args[0], min, max, offset, count)
		return rankedSliceReply(members, err)
	}
	t["zrank"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("zrank")
		}
		rank, exists, err := d.rds.ZRank(ctx, args[0], args[1])
		if err != nil || !exists {
			return nil, err
		}
		return rank, nil
	}
	t["zrevrank"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("zrevrank")
		}
		rank, exists, err := d.rds.ZRevRank(ctx, args[0], args[1])
		if err != nil || !exists {
			return nil, err
		}
		return rank, nil
	}
	t["zpopmin"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("zpopmin")
		}
		m, found, err := d.rds.ZPopMin(ctx, args[0])
		if err != nil || !found {
			return nil, err
		}
		return rankedReply(m.Member, m.Score), nil
	}
	t["zpopmax"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("zpopmax")
		}
		m, found, err := d.rds.ZPopMax(ctx, args[0])
		if err != nil || !found {
			return nil, err
		}
		return rankedReply(m.Member, m.Score), nil
	}
	t["zremrangebyrank"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zremrangebyrank")
		}
		start, stop, err := parseStartStop(args[1], args[2])
		if err != nil {
			return nil, err
		}
		n, err := d.rds.ZRemRangeByRank(ctx, args[0], start, stop)
		return int64(n), err
	}
	t["zremrangebyscore"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 3 {
			return nil, wrongArgs("zremrangebyscore")
		}
		min, err := parseScoreBound(args[1])
		if err != nil {
			return nil, err
		}
		max, err := parseScoreBound(args[2])
		if err != nil {
			return nil, err
		}
		n, err := d.rds.ZRemRangeByScore(ctx, args[0], min, max)
		return int64(n), err
	}

	// ---- keys ----
	t["del"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("del")
		}
		var n int64
		for _, key := range args {
			existed, err := d.rds.Del(key)
			if err != nil {
				return nil, err
			}
			if existed {
				n++
			}
		}
		return n, nil
	}
	t["exists"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) == 0 {
			return nil, wrongArgs("exists")
		}
		var n int64
		for _, key := range args {
			exists, err := d.rds.Exists(key)
			if err != nil {
				return nil, err
			}
			if exists {
				n++
			}
		}
		return n, nil
	}
	t["type"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("type")
		}
		return d.rds.Type(args[0])
	}
	t["ttl"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("ttl")
		}
		return d.rds.TTL(args[0])
	}
	t["pttl"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("pttl")
		}
		return d.rds.PTTL(args[0])
	}
	t["expire"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("expire")
		}
		seconds, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		ok, err := d.rds.Expire(args[0], time.Duration(seconds)*time.Second)
		return boolInt(ok), err
	}
	t["pexpire"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("pexpire")
		}
		ms, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		ok, err := d.rds.PExpire(args[0], ms)
		return boolInt(ok), err
	}
	t["expireat"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("expireat")
		}
		seconds, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		ok, err := d.rds.ExpireAt(args[0], seconds*1000)
		return boolInt(ok), err
	}
	t["pexpireat"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 2 {
			return nil, wrongArgs("pexpireat")
		}
		ms, err := parseInt64(args[1])
		if err != nil {
			return nil, errNotInteger()
		}
		ok, err := d.rds.PExpireAt(args[0], ms)
		return boolInt(ok), err
	}
	t["persist"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("persist")
		}
		changed, err := d.rds.Persist(args[0])
		return boolInt(changed), err
	}
	t["keys"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		if len(args) != 1 {
			return nil, wrongArgs("keys")
		}
		return byteSliceReply(d.rds.Keys(ctx, string(args[0])))
	}
	t["ping"] = func(ctx context.Context, args [][]byte) (interface{}, error) {
		return d.rds.Ping(), nil
	}

	return t
}

func byteSliceReply(values [][]byte, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out, nil
}

func parseBeforeAfter(s []byte) (bool, error) {
	switch string(s) {
	case "before", "BEFORE":
		return true, nil
	case "after", "AFTER":
		return false, nil
	default:
		return false, errSyntax()
	}
}

func parseStartStop(a, b []byte) (int64, int64, error) {
	start, err := parseInt64(a)
	if err != nil {
		return 0, 0, errNotInteger()
	}
	stop, err := parseInt64(b)
	if err != nil {
		return 0, 0, errNotInteger()
	}
	return start, stop, nil
}

func parseSetOptions(flags [][]byte) (opts struct {
	TTL time.Duration
	NX  bool
	XX  bool
}, err error) {
	for i := 0; i < len(flags); i++ {
		switch string(flags[i]) {
		case "NX", "nx":
			opts.NX = true
		case "XX", "xx":
			opts.XX = true
		case "EX", "ex":
			i++
			if i >= len(flags) {
				return opts, errSyntax()
			}
			seconds, parseErr := parseInt64(flags[i])
			if parseErr != nil {
				return opts, errNotInteger()
			}
			opts.TTL = time.Duration(seconds) * time.Second
		case "PX", "px":
			i++
			if i >= len(flags) {
				return opts, errSyntax()
			}
			ms, parseErr := parseInt64(flags[i])
			if parseErr != nil {
				return opts, errNotInteger()
			}
			opts.TTL = time.Duration(ms) * time.Millisecond
		default:
			return opts, errSyntax()
		}
	}
	return opts, nil
}
