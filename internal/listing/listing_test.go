package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrder(t *testing.T) {
	allowed := []string{"identity", "name_or_rcpt", "tags"}

	t.Run("默认排序键", func(t *testing.T) {
		key, desc, err := SortOrder("", "identity", allowed)
		assert.NoError(t, err)
		assert.Equal(t, "identity", key)
		assert.False(t, desc)
	})

	t.Run("降序前缀", func(t *testing.T) {
		key, desc, err := SortOrder("-tags", "identity", allowed)
		assert.NoError(t, err)
		assert.Equal(t, "tags", key)
		assert.True(t, desc)
	})

	t.Run("白名单外的排序键返回错误", func(t *testing.T) {
		_, _, err := SortOrder("password", "identity", allowed)
		assert.ErrorIs(t, err, ErrInvalidSortKey)
	})

	t.Run("无白名单时不校验", func(t *testing.T) {
		key, _, err := SortOrder("anything", "identity", nil)
		assert.NoError(t, err)
		assert.Equal(t, "anything", key)
	})
}

func TestPaginate(t *testing.T) {
	t.Run("正常分页", func(t *testing.T) {
		p := Paginate(65, 2, 30)
		assert.NotNil(t, p)
		assert.Equal(t, 2, p.Number)
		assert.Equal(t, 30, p.Start)
		assert.Equal(t, 60, p.End)
		assert.Equal(t, 3, p.Pages)
	})

	t.Run("末页截断", func(t *testing.T) {
		p := Paginate(65, 3, 30)
		assert.NotNil(t, p)
		assert.Equal(t, 60, p.Start)
		assert.Equal(t, 65, p.End)
	})

	t.Run("页码越界返回nil", func(t *testing.T) {
		assert.Nil(t, Paginate(65, 4, 30))
		assert.Nil(t, Paginate(65, 0, 30))
	})

	t.Run("空列表的第一页合法", func(t *testing.T) {
		p := Paginate(0, 1, 30)
		assert.NotNil(t, p)
		assert.Equal(t, 0, p.Start)
		assert.Equal(t, 0, p.End)
		assert.Equal(t, 1, p.Pages)
	})
}
