package codec

import "sort"

// huffTreeNode is an intermediate build-time tree node; leaf nodes carry a
// symbol value (0-256, where 256 is the SQ stop symbol), internal nodes
// carry two children.
type huffTreeNode struct {
	freq        int
	symbol      int // valid only if leaf
	isLeaf      bool
	left, right *huffTreeNode
	order       int // insertion order, used to keep the build deterministic
}

// buildHuffmanTree builds a static Huffman tree over freq (indexed by
// symbol 0..256) and returns it serialized into the SQ on-disk node array
// (root at index 0), along with each symbol's bit code.
func buildHuffmanTree(freq []int) ([]sqNode, int, map[int]bitCode) {
	var active []*huffTreeNode
	order := 0
	for sym, f := range freq {
		if f <= 0 {
			continue
		}
		active = append(active, &huffTreeNode{freq: f, symbol: sym, isLeaf: true, order: order})
		order++
	}
	if len(active) == 1 {
		// A single-symbol alphabet still needs a 1-bit code; synthesize a
		// trivial parent so the tree has at least one internal node.
		only := active[0]
		parent := &huffTreeNode{freq: only.freq, left: only, right: only, order: order}
		active = []*huffTreeNode{parent}
	}

	for len(active) > 1 {
		sort.SliceStable(active, func(i, j int) bool {
			if active[i].freq != active[j].freq {
				return active[i].freq < active[j].freq
			}
			return active[i].order < active[j].order
		})
		left, right := active[0], active[1]
		parent := &huffTreeNode{
			freq:  left.freq + right.freq,
			left:  left,
			right: right,
			order: order,
		}
		order++
		active = append(active[2:], parent)
	}

	root := active[0]

	// Flatten via BFS so the root lands at index 0.
	var nodes []sqNode
	indexOf := make(map[*huffTreeNode]int)
	queue := []*huffTreeNode{root}
	indexOf[root] = 0
	nodes = append(nodes, sqNode{})
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		idx := indexOf[n]
		nodes[idx].Left = encodeChild(n.left, &nodes, &queue, indexOf)
		nodes[idx].Right = encodeChild(n.right, &nodes, &queue, indexOf)
	}

	codes := make(map[int]bitCode)
	var walk func(n *huffTreeNode, code bitCode)
	walk = func(n *huffTreeNode, code bitCode) {
		if n.isLeaf {
			codes[n.symbol] = code
			return
		}
		walk(n.left, code.append(0))
		walk(n.right, code.append(1))
	}
	walk(root, bitCode{})

	return nodes, 0, codes
}

func encodeChild(child *huffTreeNode, nodes *[]sqNode, queue *[]*huffTreeNode, indexOf map[*huffTreeNode]int) int16 {
	if child.isLeaf {
		return int16(-(child.symbol) - 1)
	}
	if idx, ok := indexOf[child]; ok {
		return int16(idx)
	}
	idx := len(*nodes)
	indexOf[child] = idx
	*nodes = append(*nodes, sqNode{})
	*queue = append(*queue, child)
	return int16(idx)
}

// bitCode is a short sequence of bits, MSB describing the path from the
// tree root (0 = left, 1 = right), stored with its length since leading
// zero bits are significant.
type bitCode struct {
	bits []byte
}

func (c bitCode) append(bit byte) bitCode {
	nb := make([]byte, len(c.bits)+1)
	copy(nb, c.bits)
	nb[len(c.bits)] = bit
	return bitCode{bits: nb}
}
