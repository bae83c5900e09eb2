package ids

import (
	"strconv"
	"sync"
	"time"
)

const (
	nodeBits = 10
	seqBits  = 12
	maxNode  = 1<<nodeBits - 1
	seqMask  = 1<<seqBits - 1
)

// epoch 2024-01-01 UTC
var epochMS = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

// Generator issues time-ordered 63-bit ids: 41 bits ms | 10 bits node | 12 bits seq.
type Generator struct {
	mu     sync.Mutex
	node   int64
	seq    int64
	lastMS int64
	now    func() time.Time
}

func NewGenerator(node int64) *Generator {
	if node < 0 || node > maxNode {
		node = 1
	}
	return &Generator{node: node, now: time.Now}
}

var (
	defaultGen = NewGenerator(1)
	defaultMu  sync.RWMutex
)

// SetNodeID 设置 nodeID（0~1023），在 main() 初始化时调用
func SetNodeID(node int64) {
	defaultMu.Lock()
	defaultGen = NewGenerator(node)
	defaultMu.Unlock()
}

func Generate() int64 {
	defaultMu.RLock()
	g := defaultGen
	defaultMu.RUnlock()
	return g.Next()
}

func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now().UnixMilli()
		if now < g.lastMS {
			// 时钟回拨，等待
			time.Sleep(time.Duration(g.lastMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastMS {
			g.seq = (g.seq + 1) & seqMask
			if g.seq == 0 {
				for now <= g.lastMS {
					now = g.now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastMS = now

		ts := (now - epochMS) & (1<<41 - 1)
		return ts<<(nodeBits+seqBits) | g.node<<seqBits | g.seq
	}
}

func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}
