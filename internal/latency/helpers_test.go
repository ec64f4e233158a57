package latency

import "time"

const t0 = int64(1_600_000_000)

func tx(typ string, offset int64) Transaction {
	return Transaction{Type: typ, DateCreated: t0 + offset, DateModified: t0 + offset}
}

func at(offset int64) time.Time {
	return time.Unix(t0+offset, 0).UTC()
}

func secs(n int64) time.Duration {
	return time.Duration(n) * time.Second
}
