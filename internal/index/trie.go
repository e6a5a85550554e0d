package index

// wordTrie is an arena-backed prefix tree: nodes live in one flat slice and
// reference children by integer index, so traversal is iterative and the
// structure stays pointer-free. Node 0 is the root.
type wordTrie struct {
	nodes []trieNode
}

type trieNode struct {
	children map[byte]int32
	isWord   bool
}

func newWordTrie() *wordTrie {
	return &wordTrie{nodes: []trieNode{{children: make(map[byte]int32)}}}
}

func (t *wordTrie) insert(word string) {
	cur := int32(0)
	for i := 0; i < len(word); i++ {
		next, ok := t.nodes[cur].children[word[i]]
		if !ok {
			next = int32(len(t.nodes))
			t.nodes = append(t.nodes, trieNode{children: make(map[byte]int32)})
			t.nodes[cur].children[word[i]] = next
		}
		cur = next
	}
	t.nodes[cur].isWord = true
}

// remove unmarks the word. Arena nodes are never reclaimed individually;
// the whole trie is rebuilt on index reset.
func (t *wordTrie) remove(word string) {
	cur := int32(0)
	for i := 0; i < len(word); i++ {
		next, ok := t.nodes[cur].children[word[i]]
		if !ok {
			return
		}
		cur = next
	}
	t.nodes[cur].isWord = false
}

// wordsWithPrefix collects every stored word starting with prefix using an
// explicit stack instead of recursion.
func (t *wordTrie) wordsWithPrefix(prefix string) []string {
	cur := int32(0)
	for i := 0; i < len(prefix); i++ {
		next, ok := t.nodes[cur].children[prefix[i]]
		if !ok {
			return nil
		}
		cur = next
	}

	type frame struct {
		node int32
		word string
	}
	var words []string
	stack := []frame{{node: cur, word: prefix}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.nodes[f.node].isWord {
			words = append(words, f.word)
		}
		for ch, next := range t.nodes[f.node].children {
			stack = append(stack, frame{node: next, word: f.word + string(ch)})
		}
	}
	return words
}
