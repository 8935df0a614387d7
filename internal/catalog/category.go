package catalog

import (
	"context"
	"strings"
	"unicode"

	"storefront/internal/model"
	"storefront/internal/order"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type NewCategory struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	IsActive *bool   `json:"is_active"`
}

func (s *Service) CreateCategory(ctx context.Context, in NewCategory) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, errors.Wrap(ErrInvalidInput, "name is required")
	}
	c := &model.Category{Name: name, Slug: slug, IsActive: true}
	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := s.findCategory(ctx, *in.ParentID); err != nil {
			return nil, errors.Wrap(ErrInvalidInput, "parent category does not exist")
		}
		c.ParentID = in.ParentID
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, s.writeErr("category create", name, err)
	}
	s.log.WithFields(log.Fields{"category_id": c.ID, "slug": c.Slug}).Info("category created")
	return c, nil
}

// ListCategories 返回分类树。父分类不在结果集里的节点（例如搜索只命中子分类）作为根返回。
func (s *Service) ListCategories(ctx context.Context, search string) ([]model.Category, error) {
	scope := s.db.WithContext(ctx).Model(&model.Category{})
	if term := strings.TrimSpace(search); term != "" {
		like := order.ContainsPattern(term)
		scope = scope.Where("name LIKE ? ESCAPE '\\' OR slug LIKE ? ESCAPE '\\'", like, like)
	}
	var flat []model.Category
	if err := scope.Order("name ASC").Find(&flat).Error; err != nil {
		return nil, errors.Wrap(err, "category list")
	}
	return buildTree(flat), nil
}

func buildTree(flat []model.Category) []model.Category {
	present := make(map[string]bool, len(flat))
	for _, c := range flat {
		present[c.ID] = true
	}
	children := map[string][]model.Category{}
	var roots []model.Category
	for _, c := range flat {
		if c.ParentID != nil && present[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}
	var attach func(c *model.Category)
	attach = func(c *model.Category) {
		c.Children = children[c.ID]
		for i := range c.Children {
			attach(&c.Children[i])
		}
	}
	for i := range roots {
		attach(&roots[i])
	}
	return roots
}

// CategoryPatch 只更新非 nil 字段。ParentID 指向空串表示提升为根分类。
type CategoryPatch struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parent_id"`
	IsActive *bool   `json:"is_active"`
}

func (s *Service) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*model.Category, error) {
	if _, err := s.findCategory(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		slug := Slugify(name)
		if slug == "" {
			return nil, errors.Wrap(ErrInvalidInput, "name must not be empty")
		}
		updates["name"] = name
		updates["slug"] = slug
	}
	if patch.ParentID != nil {
		if *patch.ParentID == "" {
			updates["parent_id"] = nil
		} else {
			if err := s.checkParent(ctx, id, *patch.ParentID); err != nil {
				return nil, err
			}
			updates["parent_id"] = *patch.ParentID
		}
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if len(updates) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "nothing to update")
	}
	if err := s.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, s.writeErr("category update", id, err)
	}
	return s.findCategory(ctx, id)
}

// checkParent 拒绝把分类挂到自己或自己的后代下面。
func (s *Service) checkParent(ctx context.Context, id, parentID string) error {
	for cur := parentID; cur != ""; {
		if cur == id {
			return errors.Wrap(ErrInvalidInput, "category cannot be its own ancestor")
		}
		parent, err := s.findCategory(ctx, cur)
		if err != nil {
			return errors.Wrap(ErrInvalidInput, "parent category does not exist")
		}
		if parent.ParentID == nil {
			break
		}
		cur = *parent.ParentID
	}
	return nil
}

// DeleteCategory 物理删除。仍有商品（含已软删除的）或子分类引用时拒绝。
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.findCategory(ctx, id); err != nil {
		return err
	}
	var products int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&model.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
		return errors.Wrap(err, "category usage")
	}
	if products > 0 {
		return errors.Wrapf(ErrInUse, "category %s has %d products", id, products)
	}
	var subs int64
	if err := s.db.WithContext(ctx).Model(&model.Category{}).Where("parent_id = ?", id).Count(&subs).Error; err != nil {
		return errors.Wrap(err, "category usage")
	}
	if subs > 0 {
		return errors.Wrapf(ErrInUse, "category %s has %d subcategories", id, subs)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Category{}).Error; err != nil {
		return errors.Wrap(err, "category delete")
	}
	return nil
}

func (s *Service) findCategory(ctx context.Context, id string) (*model.Category, error) {
	var found []model.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
		return nil, errors.Wrap(err, "category lookup")
	}
	if len(found) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "category %s", id)
	}
	return &found[0], nil
}

func (s *Service) requireActiveCategory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(ErrInvalidInput, "category_id is required")
	}
	c, err := s.findCategory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return errors.Wrap(ErrInvalidInput, "category does not exist")
	}
	if err != nil {
		return err
	}
	if !c.IsActive {
		return errors.Wrap(ErrInvalidInput, "category is inactive")
	}
	return nil
}

// Slugify 小写化，非字母数字的连续字符折叠为单个 "-"。
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
