package bubbletea

// BlockSeparator exports blockSeparator for testing.
func BlockSeparator(prev, curr MessageBlock) string {
	return blockSeparator(prev, curr)
}

// RenderContent exports renderContent for testing.
func RenderContent(b Browser) string {
	return b.renderContent()
}

// AllExpanded returns whether all collapsible blocks are in expanded state.
func AllExpanded(b Browser) bool {
	return b.allExpanded
}

// BlockFocus returns the index of the focused block.
func BlockFocus(b Browser) int {
	return b.blockFocus
}

// ResultText exports resultText for testing.
var ResultText = resultText
