package redis

const (
	// accrueScript atomically adds seconds to a domain record and indexes it
	accrueScript = `
local record_key = KEYS[1]    -- {prefix}:site:{date}:{domain}
local day_key = KEYS[2]       -- {prefix}:day:{date}
local days_key = KEYS[3]      -- {prefix}:days

local date = ARGV[1]
local domain = ARGV[2]
local last_updated = ARGV[4]

-- Register the date and the domain within it
redis.call('SADD', days_key, date)
redis.call('SADD', day_key, domain)

local total = redis.call('HINCRBY', record_key, 'time_spent', ARGV[3])
redis.call('HSET', record_key, 'last_updated', last_updated)

return {total, tonumber(last_updated)}
`
)
